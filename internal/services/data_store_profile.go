package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"go.uber.org/zap"
)

// Profile returns a copy of the stored profile, or nil before onboarding.
func (store *DataStore) Profile() *models.Profile {
	return store.data.Profile.Clone()
}

// SaveProfile validates and stores the profile, keeping the original creation
// time, and restarts glucose polling against the new feed settings.
func (store *DataStore) SaveProfile(profile models.Profile) (models.Profile, error) {
	if !isFinite(profile.GramsPerRation) || profile.GramsPerRation <= 0 {
		return models.Profile{}, store.invalid("error.profile_invalid_grams_per_ration")
	}
	if !isFinite(profile.InsulinRatio) || profile.InsulinRatio <= 0 {
		return models.Profile{}, store.invalid("error.profile_invalid_insulin_ratio")
	}
	for _, goal := range []*float64{profile.DailyCarbsGoal, profile.DailyRationsGoal, profile.DailyInsulinGoal} {
		if goal != nil && (!isFinite(*goal) || *goal < 0) {
			return models.Profile{}, store.invalid("error.profile_invalid_goal")
		}
	}

	saved := *profile.Clone()
	saved.Name = strings.TrimSpace(saved.Name)
	saved.NightscoutURL = trimmedOrNil(saved.NightscoutURL)
	saved.NightscoutToken = trimmedOrNil(saved.NightscoutToken)
	if store.data.Profile != nil {
		saved.CreatedAt = store.data.Profile.CreatedAt
	} else {
		saved.CreatedAt = models.NewTimestamp(store.currentTime())
	}

	store.data.Profile = &saved
	store.persist()
	store.restartPolling()
	store.logger.Info("profile saved", zap.Bool("glucose_feed", saved.HasFeed()))
	return *saved.Clone(), nil
}

func (store *DataStore) Foods() []models.Food {
	foods := make([]models.Food, 0, len(store.data.Foods))
	for _, food := range store.data.Foods {
		foods = append(foods, food.Clone())
	}
	return foods
}

// FoodsFiltered returns the foods whose name contains query, ignoring case.
// A blank query returns every food.
func (store *DataStore) FoodsFiltered(query string) []models.Food {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return store.Foods()
	}
	foods := make([]models.Food, 0)
	for _, food := range store.data.Foods {
		if strings.Contains(strings.ToLower(food.Name), needle) {
			foods = append(foods, food.Clone())
		}
	}
	return foods
}

func (store *DataStore) Food(id uuid.UUID) (models.Food, bool) {
	food := store.foodByID(id)
	if food == nil {
		return models.Food{}, false
	}
	return food.Clone(), true
}

// UpsertFood inserts a new food (zero ID) or replaces an existing one. Meal
// items keep the carbs computed when they were saved.
func (store *DataStore) UpsertFood(food models.Food) (models.Food, error) {
	food = food.Clone()
	food.Name = strings.TrimSpace(food.Name)
	if food.Name == "" {
		return models.Food{}, store.invalid("error.food_name_required")
	}
	if !isFinite(food.CarbsPer100g) || food.CarbsPer100g < 0 {
		return models.Food{}, store.invalid("error.food_invalid_carbs")
	}
	food.Source = strings.TrimSpace(food.Source)
	if food.Source == "" {
		food.Source = models.FoodSourceUser
	}
	food.Note = trimmedOrNil(food.Note)

	if food.ID == uuid.Nil {
		food.ID = uuid.New()
		store.data.Foods = append(store.data.Foods, food)
	} else if existing := store.foodByID(food.ID); existing != nil {
		*existing = food
	} else {
		store.data.Foods = append(store.data.Foods, food)
	}

	SortFoods(store.data.Foods)
	store.persist()
	return food.Clone(), nil
}

// DeleteFood removes the food together with the meal and template items that
// reference it. Meals themselves keep their stored totals.
func (store *DataStore) DeleteFood(id uuid.UUID) bool {
	index := -1
	for candidate := range store.data.Foods {
		if store.data.Foods[candidate].ID == id {
			index = candidate
			break
		}
	}
	if index < 0 {
		return false
	}

	store.data.Foods = append(store.data.Foods[:index], store.data.Foods[index+1:]...)
	store.data.MealItems = filterMealItems(store.data.MealItems, func(item models.MealItem) bool {
		return item.FoodID != id
	})
	store.data.TemplateItems = filterTemplateItems(store.data.TemplateItems, func(item models.TemplateItem) bool {
		return item.FoodID != id
	})
	store.persist()
	return true
}

type CatalogMergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// MergeCatalog applies catalog rows to the live food list.
func (store *DataStore) MergeCatalog(rows []CatalogRow) CatalogMergeResult {
	before := make(map[uuid.UUID]models.Food, len(store.data.Foods))
	for _, food := range store.data.Foods {
		before[food.ID] = food
	}

	merged := MergeCatalog(store.data.Foods, rows)
	result := CatalogMergeResult{}
	for _, food := range merged {
		previous, existed := before[food.ID]
		switch {
		case !existed:
			result.Added++
		case !foodsEqual([]models.Food{previous}, []models.Food{food}):
			result.Updated++
		}
	}

	if result.Added == 0 && result.Updated == 0 {
		return result
	}
	store.data.Foods = merged
	store.persist()
	store.logger.Info("catalog merged", zap.Int("added", result.Added), zap.Int("updated", result.Updated))
	return result
}

func (store *DataStore) foodByID(id uuid.UUID) *models.Food {
	for index := range store.data.Foods {
		if store.data.Foods[index].ID == id {
			return &store.data.Foods[index]
		}
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func filterMealItems(items []models.MealItem, keep func(models.MealItem) bool) []models.MealItem {
	filtered := make([]models.MealItem, 0, len(items))
	for _, item := range items {
		if keep(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func filterTemplateItems(items []models.TemplateItem, keep func(models.TemplateItem) bool) []models.TemplateItem {
	filtered := make([]models.TemplateItem, 0, len(items))
	for _, item := range items {
		if keep(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func filterPendingTasks(tasks []models.PendingGlucoseTask, keep func(models.PendingGlucoseTask) bool) []models.PendingGlucoseTask {
	filtered := make([]models.PendingGlucoseTask, 0, len(tasks))
	for _, task := range tasks {
		if keep(task) {
			filtered = append(filtered, task)
		}
	}
	return filtered
}
