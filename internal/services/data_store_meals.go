package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/metrics"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"go.uber.org/zap"
)

const AdvisorySeparator = " · "

// DraftItem is one line of a meal being composed: a food and the grams as
// typed by the user.
type DraftItem struct {
	FoodID uuid.UUID `json:"foodID"`
	Grams  string    `json:"grams"`
}

type resolvedDraft struct {
	food  models.Food
	grams float64
}

type SaveMealResult struct {
	Meal         models.Meal                `json:"meal"`
	Items        []models.MealItem          `json:"items"`
	AlertMessage *string                    `json:"alertMessage,omitempty"`
	PendingTask  *models.PendingGlucoseTask `json:"pendingTask,omitempty"`
}

type MealItemWithFood struct {
	Item models.MealItem `json:"item"`
	Food *models.Food    `json:"food,omitempty"`
}

type DoseFilter string

const DoseFilterAll DoseFilter = "all"

func ParseDoseFilter(raw string) (DoseFilter, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" || normalized == string(DoseFilterAll) {
		return DoseFilterAll, nil
	}
	status, err := models.ParseDoseStatus(normalized)
	if err != nil {
		return "", err
	}
	return DoseFilter(status), nil
}

func (filter DoseFilter) Matches(status models.DoseStatus) bool {
	return filter == "" || filter == DoseFilterAll || models.DoseStatus(filter) == status
}

// resolveDrafts keeps the drafts that reference a known food with a positive
// grams amount.
func (store *DataStore) resolveDrafts(drafts []DraftItem) []resolvedDraft {
	resolved := make([]resolvedDraft, 0, len(drafts))
	for _, draft := range drafts {
		food := store.foodByID(draft.FoodID)
		if food == nil {
			continue
		}
		grams, ok := ParseDecimal(draft.Grams)
		if !ok || grams <= 0 {
			continue
		}
		resolved = append(resolved, resolvedDraft{food: *food, grams: grams})
	}
	return resolved
}

// ComputeCalculation sums the carbs of every valid draft and derives rations
// and insulin from the profile. It returns zeros without a profile or when a
// total overflows.
func (store *DataStore) ComputeCalculation(drafts []DraftItem) Calculation {
	calculation := store.calculate(drafts)
	if !calculation.IsFinite() {
		return Calculation{}
	}
	return calculation
}

func (store *DataStore) calculate(drafts []DraftItem) Calculation {
	profile := store.data.Profile
	if profile == nil {
		return Calculation{}
	}

	totalCarbs := 0.0
	for _, draft := range store.resolveDrafts(drafts) {
		totalCarbs += CalculateCarbs(draft.food.CarbsPer100g, draft.grams)
	}
	rations := CalculateRations(totalCarbs, profile.GramsPerRation)
	return Calculation{
		TotalCarbs:   totalCarbs,
		Rations:      rations,
		InsulinUnits: CalculateInsulin(rations, profile.InsulinRatio),
	}
}

func (store *DataStore) CanSaveMeal(drafts []DraftItem) bool {
	return store.data.Profile != nil && len(store.resolveDrafts(drafts)) > 0 && store.calculate(drafts).IsFinite()
}

// SaveMeal records a meal from the valid drafts. When a glucose feed is
// configured the pre-meal reading is fetched synchronously; a failed fetch
// never fails the save and queues a "before" capture task instead.
func (store *DataStore) SaveMeal(ctx context.Context, drafts []DraftItem, notes string) (SaveMealResult, error) {
	profile := store.data.Profile
	if profile == nil {
		return SaveMealResult{}, store.profileMissing()
	}

	resolved := store.resolveDrafts(drafts)
	if len(resolved) == 0 {
		return SaveMealResult{}, store.invalid("error.meal_no_valid_items")
	}
	calculation := store.calculate(drafts)
	if !calculation.IsFinite() {
		return SaveMealResult{}, store.invalid("error.meal_invalid_calculation")
	}

	now := store.currentTime()
	meal := models.Meal{
		ID:                  uuid.New(),
		TotalCarbs:          calculation.TotalCarbs,
		Rations:             calculation.Rations,
		InsulinUnits:        calculation.InsulinUnits,
		RatioInsulinPerGram: InsulinPerGram(profile),
		Date:                models.NewTimestamp(now),
		Notes:               trimmedOrNil(&notes),
		DoseStatus:          models.DosePending,
	}

	var feedErr error
	if profile.HasFeed() && store.glucose != nil {
		entry, err := store.glucose.LatestGlucose(ctx, profile.FeedURL(), profile.FeedToken())
		if err != nil {
			feedErr = err
			store.logger.Warn("pre-meal glucose fetch failed", zap.String("meal_id", meal.ID.String()), zap.Error(err))
		} else {
			value := entry.SGV
			meal.GlucoseBeforeMgdl = &value
		}
	}

	items := make([]models.MealItem, 0, len(resolved))
	for _, draft := range resolved {
		items = append(items, models.MealItem{
			ID:              uuid.New(),
			MealID:          meal.ID,
			FoodID:          draft.food.ID,
			GramsConsumed:   draft.grams,
			CarbsCalculated: CalculateCarbs(draft.food.CarbsPer100g, draft.grams),
		})
	}

	store.data.Meals = append(store.data.Meals, meal)
	sortMeals(store.data.Meals)
	store.data.MealItems = append(store.data.MealItems, items...)

	result := SaveMealResult{Meal: meal.Clone(), Items: append([]models.MealItem(nil), items...)}
	if feedErr != nil {
		task := store.appendPendingTask(meal, models.GlucoseBefore, now, feedErr)
		result.PendingTask = &task
	}
	if profile.Reminder2hEnabled {
		store.reminders.ScheduleReminder(meal.ID, meal.Date.Time)
	}
	result.AlertMessage = store.dailyGoalAdvisory(profile, now)

	store.persist()
	metrics.MealsSaved.Inc()
	store.logger.Info("meal saved",
		zap.String("meal_id", meal.ID.String()),
		zap.Int("items", len(items)),
		zap.Float64("insulin_units", meal.InsulinUnits),
	)
	return result, nil
}

// dailyGoalAdvisory compares the totals of every meal on the calendar day of
// now (the just-saved meal included) with the profile goals.
func (store *DataStore) dailyGoalAdvisory(profile *models.Profile, now time.Time) *string {
	if profile.DailyCarbsGoal == nil && profile.DailyRationsGoal == nil && profile.DailyInsulinGoal == nil {
		return nil
	}

	dayStart, dayEnd := DayBounds(now, store.location)
	var carbs, rations, insulin float64
	for _, meal := range store.data.Meals {
		if meal.Date.Before(dayStart) || meal.Date.After(dayEnd) {
			continue
		}
		carbs += meal.TotalCarbs
		rations += meal.Rations
		insulin += meal.InsulinUnits
	}

	messages := make([]string, 0, 3)
	if exceeded(carbs, profile.DailyCarbsGoal) {
		messages = append(messages, store.localizer.Translatef("goal.carbs_exceeded", formatOneDecimal(carbs), formatOneDecimal(*profile.DailyCarbsGoal)))
	}
	if exceeded(rations, profile.DailyRationsGoal) {
		messages = append(messages, store.localizer.Translatef("goal.rations_exceeded", formatOneDecimal(rations), formatOneDecimal(*profile.DailyRationsGoal)))
	}
	if exceeded(insulin, profile.DailyInsulinGoal) {
		messages = append(messages, store.localizer.Translatef("goal.insulin_exceeded", formatOneDecimal(insulin), formatOneDecimal(*profile.DailyInsulinGoal)))
	}
	if len(messages) == 0 {
		return nil
	}
	joined := strings.Join(messages, AdvisorySeparator)
	return &joined
}

func exceeded(total float64, goal *float64) bool {
	return goal != nil && *goal > 0 && total > *goal
}

func formatOneDecimal(value float64) string {
	return fmt.Sprintf("%.1f", value)
}

func (store *DataStore) Meals() []models.Meal {
	meals := make([]models.Meal, 0, len(store.data.Meals))
	for _, meal := range store.data.Meals {
		meals = append(meals, meal.Clone())
	}
	return meals
}

func (store *DataStore) Meal(id uuid.UUID) (models.Meal, bool) {
	meal := store.mealByID(id)
	if meal == nil {
		return models.Meal{}, false
	}
	return meal.Clone(), true
}

func (store *DataStore) MealItems(mealID uuid.UUID) []models.MealItem {
	items := make([]models.MealItem, 0)
	for _, item := range store.data.MealItems {
		if item.MealID == mealID {
			items = append(items, item)
		}
	}
	return items
}

// MealItemsWithFood pairs every item with its food, sorted by food name.
// Food is nil for items whose food no longer resolves.
func (store *DataStore) MealItemsWithFood(mealID uuid.UUID) []MealItemWithFood {
	items := store.MealItems(mealID)
	paired := make([]MealItemWithFood, 0, len(items))
	for _, item := range items {
		entry := MealItemWithFood{Item: item}
		if food := store.foodByID(item.FoodID); food != nil {
			copied := food.Clone()
			entry.Food = &copied
		}
		paired = append(paired, entry)
	}
	sortByFoodName(paired, func(entry MealItemWithFood) *models.Food { return entry.Food })
	return paired
}

// DeleteMeal removes the meal with its items and pending capture tasks.
func (store *DataStore) DeleteMeal(id uuid.UUID) bool {
	index := -1
	for candidate := range store.data.Meals {
		if store.data.Meals[candidate].ID == id {
			index = candidate
			break
		}
	}
	if index < 0 {
		return false
	}

	store.data.Meals = append(store.data.Meals[:index], store.data.Meals[index+1:]...)
	store.data.MealItems = filterMealItems(store.data.MealItems, func(item models.MealItem) bool {
		return item.MealID != id
	})
	store.data.PendingGlucose = filterPendingTasks(store.data.PendingGlucose, func(task models.PendingGlucoseTask) bool {
		return task.MealID != id
	})
	store.persist()
	return true
}

// UpdateDoseStatus sets the dose status. Applied stamps the confirmation time;
// any other status clears it.
func (store *DataStore) UpdateDoseStatus(mealID uuid.UUID, status models.DoseStatus) (models.Meal, error) {
	if !status.Valid() {
		return models.Meal{}, store.invalid("error.dose_status_invalid")
	}
	meal := store.mealByID(mealID)
	if meal == nil {
		return models.Meal{}, store.invalid("error.meal_not_found")
	}

	meal.DoseStatus = status
	if status == models.DoseApplied {
		meal.DoseConfirmedAt = models.NewTimestampPtr(store.currentTime())
	} else {
		meal.DoseConfirmedAt = nil
	}
	store.persist()
	return meal.Clone(), nil
}

// FilteredMeals applies the text, day and dose filters in that order. The
// query matches meal notes or the names of the meal's foods, ignoring case.
func (store *DataStore) FilteredMeals(query string, dayFilter DayFilter, doseFilter DoseFilter) []models.Meal {
	needle := strings.ToLower(strings.TrimSpace(query))
	now := store.currentTime()

	var foodNamesByMeal map[uuid.UUID][]string
	if needle != "" {
		foodNamesByMeal = make(map[uuid.UUID][]string)
		for _, item := range store.data.MealItems {
			if food := store.foodByID(item.FoodID); food != nil {
				foodNamesByMeal[item.MealID] = append(foodNamesByMeal[item.MealID], strings.ToLower(food.Name))
			}
		}
	}

	meals := make([]models.Meal, 0)
	for _, meal := range store.data.Meals {
		if needle != "" && !mealMatchesQuery(meal, foodNamesByMeal[meal.ID], needle) {
			continue
		}
		if !dayFilter.Contains(meal.Date.Time, now, store.location) {
			continue
		}
		if !doseFilter.Matches(meal.DoseStatus) {
			continue
		}
		meals = append(meals, meal.Clone())
	}
	return meals
}

func mealMatchesQuery(meal models.Meal, foodNames []string, needle string) bool {
	if meal.Notes != nil && strings.Contains(strings.ToLower(*meal.Notes), needle) {
		return true
	}
	for _, name := range foodNames {
		if strings.Contains(name, needle) {
			return true
		}
	}
	return false
}

func (store *DataStore) mealByID(id uuid.UUID) *models.Meal {
	for index := range store.data.Meals {
		if store.data.Meals[index].ID == id {
			return &store.data.Meals[index]
		}
	}
	return nil
}

// IsStoreError reports whether err carries one of the store error kinds.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
