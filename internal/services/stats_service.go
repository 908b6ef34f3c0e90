package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

const (
	topFoodsLimit   = 5
	inRangeLowMgdl  = 80
	inRangeHighMgdl = 180
)

type StatsPeriod string

const (
	StatsPeriodAll    StatsPeriod = "all"
	StatsPeriodLast7  StatsPeriod = "last7"
	StatsPeriodLast30 StatsPeriod = "last30"
	StatsPeriodLast90 StatsPeriod = "last90"
)

func ParseStatsPeriod(raw string) (StatsPeriod, error) {
	switch period := StatsPeriod(strings.ToLower(strings.TrimSpace(raw))); period {
	case "":
		return StatsPeriodLast30, nil
	case StatsPeriodAll, StatsPeriodLast7, StatsPeriodLast30, StatsPeriodLast90:
		return period, nil
	default:
		return "", fmt.Errorf("unknown stats period %q", raw)
	}
}

// Days is the window length in calendar days, or 0 for the whole history.
func (period StatsPeriod) Days() int {
	switch period {
	case StatsPeriodLast7:
		return 7
	case StatsPeriodLast30:
		return 30
	case StatsPeriodLast90:
		return 90
	default:
		return 0
	}
}

// MealsForPeriod keeps the meals dated from the start of the first day of the
// window through the end of today.
func MealsForPeriod(meals []models.Meal, period StatsPeriod, now time.Time, location *time.Location) []models.Meal {
	days := period.Days()
	if days == 0 {
		return append([]models.Meal(nil), meals...)
	}

	todayStart, todayEnd := DayBounds(now, location)
	start := daysBack(todayStart, days-1)
	filtered := make([]models.Meal, 0, len(meals))
	for _, meal := range meals {
		if meal.Date.Before(start) || meal.Date.After(todayEnd) {
			continue
		}
		filtered = append(filtered, meal)
	}
	return filtered
}

type TopFood struct {
	Name  string  `json:"name"`
	Uses  int     `json:"uses"`
	Carbs float64 `json:"carbs"`
}

type MealStats struct {
	TotalMeals            int       `json:"totalMeals"`
	DaysWithMeals         int       `json:"daysWithMeals"`
	TotalCarbs            float64   `json:"totalCarbs"`
	TotalRations          float64   `json:"totalRations"`
	TotalInsulin          float64   `json:"totalInsulin"`
	MealsPerDay           float64   `json:"mealsPerDay"`
	CarbsPerMeal          float64   `json:"carbsPerMeal"`
	RationsPerMeal        float64   `json:"rationsPerMeal"`
	InsulinPerMeal        float64   `json:"insulinPerMeal"`
	EffectiveURationRatio *float64  `json:"effectiveURationRatio"`
	EffectiveUGRatio      *float64  `json:"effectiveUGRatio"`
	AvgGlucoseBefore      *float64  `json:"avgGlucoseBefore"`
	AvgGlucoseAfter2h     *float64  `json:"avgGlucoseAfter2h"`
	AvgDelta2h            *float64  `json:"avgDelta2h"`
	InRange2hPct          *float64  `json:"inRange2hPct"`
	TopFoods              []TopFood `json:"topFoods"`
}

// BuildMealStats summarizes the given meals. Items belonging to other meals
// are ignored, as are items whose food no longer exists.
func BuildMealStats(meals []models.Meal, items []models.MealItem, foods []models.Food, location *time.Location) MealStats {
	if location == nil {
		location = time.UTC
	}

	stats := MealStats{TotalMeals: len(meals), TopFoods: []TopFood{}}
	dayStarts := make(map[int64]struct{}, len(meals))
	mealIDs := make(map[uuid.UUID]struct{}, len(meals))

	var beforeSum, afterSum, deltaSum float64
	var beforeCount, afterCount, deltaCount, inRangeCount int
	for _, meal := range meals {
		dayStarts[DateAtLocation(meal.Date.Time, location).Unix()] = struct{}{}
		mealIDs[meal.ID] = struct{}{}

		stats.TotalCarbs += meal.TotalCarbs
		stats.TotalRations += meal.Rations
		stats.TotalInsulin += meal.InsulinUnits

		if meal.GlucoseBeforeMgdl != nil {
			beforeSum += float64(*meal.GlucoseBeforeMgdl)
			beforeCount++
		}
		if meal.GlucoseAfter2hMgdl != nil {
			after := *meal.GlucoseAfter2hMgdl
			afterSum += float64(after)
			afterCount++
			if after >= inRangeLowMgdl && after <= inRangeHighMgdl {
				inRangeCount++
			}
		}
		if meal.GlucoseBeforeMgdl != nil && meal.GlucoseAfter2hMgdl != nil {
			deltaSum += float64(*meal.GlucoseAfter2hMgdl - *meal.GlucoseBeforeMgdl)
			deltaCount++
		}
	}

	stats.DaysWithMeals = max(len(dayStarts), 1)
	if stats.TotalMeals > 0 {
		count := float64(stats.TotalMeals)
		stats.MealsPerDay = count / float64(stats.DaysWithMeals)
		stats.CarbsPerMeal = stats.TotalCarbs / count
		stats.RationsPerMeal = stats.TotalRations / count
		stats.InsulinPerMeal = stats.TotalInsulin / count
	}
	stats.EffectiveURationRatio = ratioOrNil(stats.TotalInsulin, stats.TotalRations)
	stats.EffectiveUGRatio = ratioOrNil(stats.TotalInsulin, stats.TotalCarbs)
	stats.AvgGlucoseBefore = ratioOrNil(beforeSum, float64(beforeCount))
	stats.AvgGlucoseAfter2h = ratioOrNil(afterSum, float64(afterCount))
	stats.AvgDelta2h = ratioOrNil(deltaSum, float64(deltaCount))
	if afterCount > 0 {
		percent := float64(inRangeCount) / float64(afterCount) * 100
		stats.InRange2hPct = &percent
	}

	stats.TopFoods = buildTopFoods(items, foods, mealIDs)
	return stats
}

func buildTopFoods(items []models.MealItem, foods []models.Food, mealIDs map[uuid.UUID]struct{}) []TopFood {
	foodNames := make(map[uuid.UUID]string, len(foods))
	for _, food := range foods {
		foodNames[food.ID] = food.Name
	}

	byFood := make(map[uuid.UUID]*TopFood)
	for _, item := range items {
		if _, ok := mealIDs[item.MealID]; !ok {
			continue
		}
		name, ok := foodNames[item.FoodID]
		if !ok {
			continue
		}
		entry, exists := byFood[item.FoodID]
		if !exists {
			entry = &TopFood{Name: name}
			byFood[item.FoodID] = entry
		}
		entry.Uses++
		entry.Carbs += item.CarbsCalculated
	}

	top := make([]TopFood, 0, len(byFood))
	for _, entry := range byFood {
		top = append(top, *entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Uses != top[j].Uses {
			return top[i].Uses > top[j].Uses
		}
		if top[i].Carbs != top[j].Carbs {
			return top[i].Carbs > top[j].Carbs
		}
		return strings.ToLower(top[i].Name) < strings.ToLower(top[j].Name)
	})
	if len(top) > topFoodsLimit {
		top = top[:topFoodsLimit]
	}
	return top
}

func ratioOrNil(numerator float64, denominator float64) *float64 {
	if denominator <= 0 {
		return nil
	}
	value := numerator / denominator
	return &value
}

// Stats summarizes the stored meals inside period.
func (store *DataStore) Stats(period StatsPeriod) MealStats {
	meals := MealsForPeriod(store.data.Meals, period, store.currentTime(), store.location)
	return BuildMealStats(meals, store.data.MealItems, store.data.Foods, store.location)
}
