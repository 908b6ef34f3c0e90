package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/terraincognita07/dosekeeper/internal/models"
)

type Calculation struct {
	TotalCarbs   float64 `json:"totalCarbs"`
	Rations      float64 `json:"rations"`
	InsulinUnits float64 `json:"insulinUnits"`
}

func (calculation Calculation) IsFinite() bool {
	return isFinite(calculation.TotalCarbs) && isFinite(calculation.Rations) && isFinite(calculation.InsulinUnits)
}

// CalculateCarbs returns the carbohydrate grams in gramsConsumed of a food.
func CalculateCarbs(carbsPer100g float64, gramsConsumed float64) float64 {
	if !isFinite(carbsPer100g) || !isFinite(gramsConsumed) {
		return 0
	}
	if gramsConsumed <= 0 || carbsPer100g < 0 {
		return 0
	}
	return (carbsPer100g / 100) * gramsConsumed
}

func CalculateRations(totalCarbs float64, gramsPerRation float64) float64 {
	if !isFinite(totalCarbs) || !isFinite(gramsPerRation) || gramsPerRation <= 0 {
		return 0
	}
	return totalCarbs / gramsPerRation
}

// CalculateInsulin rounds rations*ratio to the nearest half unit.
func CalculateInsulin(rations float64, insulinRatio float64) float64 {
	if !isFinite(rations) || !isFinite(insulinRatio) || rations <= 0 || insulinRatio <= 0 {
		return 0
	}
	return RoundToHalf(rations * insulinRatio)
}

func RoundToHalf(value float64) float64 {
	return math.Round(value*2) / 2
}

func CalculateAll(carbsPer100g float64, gramsConsumed float64, gramsPerRation float64, insulinRatio float64) Calculation {
	carbs := CalculateCarbs(carbsPer100g, gramsConsumed)
	rations := CalculateRations(carbs, gramsPerRation)
	return Calculation{
		TotalCarbs:   carbs,
		Rations:      rations,
		InsulinUnits: CalculateInsulin(rations, insulinRatio),
	}
}

// InsulinPerGram is the ratio snapshot stored on every meal.
func InsulinPerGram(profile *models.Profile) *float64 {
	if profile == nil || profile.GramsPerRation <= 0 {
		return nil
	}
	ratio := profile.InsulinRatio / profile.GramsPerRation
	if !isFinite(ratio) {
		return nil
	}
	return &ratio
}

// ParseDecimal accepts both "12.5" and "12,5". Non-finite values are rejected.
func ParseDecimal(raw string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if normalized == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || !isFinite(value) {
		return 0, false
	}
	return value, true
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
