package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type DoseStatus string

const (
	DosePending DoseStatus = "pending"
	DoseApplied DoseStatus = "applied"
	DoseSkipped DoseStatus = "skipped"
)

func (status DoseStatus) Valid() bool {
	switch status {
	case DosePending, DoseApplied, DoseSkipped:
		return true
	default:
		return false
	}
}

func ParseDoseStatus(raw string) (DoseStatus, error) {
	status := DoseStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown dose status %q", raw)
	}
	return status, nil
}

func (status *DoseStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseDoseStatus(string(text))
	if err != nil {
		return err
	}
	*status = parsed
	return nil
}

type Meal struct {
	ID                  uuid.UUID  `json:"id"`
	TotalCarbs          float64    `json:"totalCarbs"`
	Rations             float64    `json:"rations"`
	InsulinUnits        float64    `json:"insulinUnits"`
	RatioInsulinPerGram *float64   `json:"ratioInsulinPerGram,omitempty"`
	Date                Timestamp  `json:"date"`
	Notes               *string    `json:"notes,omitempty"`
	GlucoseBeforeMgdl   *int       `json:"glucoseBeforeMgdl,omitempty"`
	GlucoseAfter2hMgdl  *int       `json:"glucoseAfter2hMgdl,omitempty"`
	DoseStatus          DoseStatus `json:"doseStatus"`
	DoseConfirmedAt     *Timestamp `json:"doseConfirmedAt,omitempty"`
}

func (meal Meal) Clone() Meal {
	meal.RatioInsulinPerGram = cloneFloat(meal.RatioInsulinPerGram)
	meal.Notes = cloneString(meal.Notes)
	meal.GlucoseBeforeMgdl = cloneInt(meal.GlucoseBeforeMgdl)
	meal.GlucoseAfter2hMgdl = cloneInt(meal.GlucoseAfter2hMgdl)
	meal.DoseConfirmedAt = cloneTimestamp(meal.DoseConfirmedAt)
	return meal
}

// EffectiveRatio is the stored insulin-per-gram snapshot, falling back to
// insulin/carbs for meals saved without one.
func (meal Meal) EffectiveRatio() float64 {
	if meal.RatioInsulinPerGram != nil {
		return *meal.RatioInsulinPerGram
	}
	if meal.TotalCarbs > 0 {
		return meal.InsulinUnits / meal.TotalCarbs
	}
	return 0
}

type MealItem struct {
	ID              uuid.UUID `json:"id"`
	MealID          uuid.UUID `json:"mealID"`
	FoodID          uuid.UUID `json:"foodID"`
	GramsConsumed   float64   `json:"gramsConsumed"`
	CarbsCalculated float64   `json:"carbsCalculated"`
}
