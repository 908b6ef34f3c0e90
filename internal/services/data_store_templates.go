package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

type TemplateItemWithFood struct {
	Item models.TemplateItem `json:"item"`
	Food *models.Food        `json:"food,omitempty"`
}

func (store *DataStore) Templates() []models.Template {
	return append(make([]models.Template, 0, len(store.data.Templates)), store.data.Templates...)
}

func (store *DataStore) Template(id uuid.UUID) (models.Template, bool) {
	for _, template := range store.data.Templates {
		if template.ID == id {
			return template, true
		}
	}
	return models.Template{}, false
}

func (store *DataStore) TemplateItems(templateID uuid.UUID) []models.TemplateItem {
	items := make([]models.TemplateItem, 0)
	for _, item := range store.data.TemplateItems {
		if item.TemplateID == templateID {
			items = append(items, item)
		}
	}
	return items
}

func (store *DataStore) TemplateItemsWithFood(templateID uuid.UUID) []TemplateItemWithFood {
	items := store.TemplateItems(templateID)
	paired := make([]TemplateItemWithFood, 0, len(items))
	for _, item := range items {
		entry := TemplateItemWithFood{Item: item}
		if food := store.foodByID(item.FoodID); food != nil {
			copied := food.Clone()
			entry.Food = &copied
		}
		paired = append(paired, entry)
	}
	sortByFoodName(paired, func(entry TemplateItemWithFood) *models.Food { return entry.Food })
	return paired
}

// SaveTemplate stores the valid drafts under name.
func (store *DataStore) SaveTemplate(name string, drafts []DraftItem) (models.Template, error) {
	cleanName := strings.TrimSpace(name)
	if cleanName == "" {
		return models.Template{}, store.invalid("error.template_name_required")
	}
	resolved := store.resolveDrafts(drafts)
	if len(resolved) == 0 {
		return models.Template{}, store.invalid("error.template_no_valid_items")
	}

	template := store.newTemplate(cleanName)
	for _, draft := range resolved {
		store.data.TemplateItems = append(store.data.TemplateItems, models.TemplateItem{
			ID:         uuid.New(),
			TemplateID: template.ID,
			FoodID:     draft.food.ID,
			Grams:      draft.grams,
		})
	}
	store.persist()
	return template, nil
}

// CreateTemplateFromMeal copies the foods and grams of a saved meal.
func (store *DataStore) CreateTemplateFromMeal(mealID uuid.UUID, name string) (models.Template, error) {
	cleanName := strings.TrimSpace(name)
	if cleanName == "" {
		return models.Template{}, store.invalid("error.template_name_required")
	}
	if store.mealByID(mealID) == nil {
		return models.Template{}, store.invalid("error.meal_not_found")
	}
	sourceItems := store.MealItems(mealID)
	if len(sourceItems) == 0 {
		return models.Template{}, store.invalid("error.meal_has_no_items")
	}

	template := store.newTemplate(cleanName)
	for _, item := range sourceItems {
		store.data.TemplateItems = append(store.data.TemplateItems, models.TemplateItem{
			ID:         uuid.New(),
			TemplateID: template.ID,
			FoodID:     item.FoodID,
			Grams:      item.GramsConsumed,
		})
	}
	store.persist()
	return template, nil
}

func (store *DataStore) newTemplate(name string) models.Template {
	template := models.Template{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: models.NewTimestamp(store.currentTime()),
	}
	store.data.Templates = append(store.data.Templates, template)
	sortTemplates(store.data.Templates)
	return template
}

func (store *DataStore) DeleteTemplate(id uuid.UUID) bool {
	if _, ok := store.Template(id); !ok {
		return false
	}
	kept := make([]models.Template, 0, len(store.data.Templates))
	for _, template := range store.data.Templates {
		if template.ID != id {
			kept = append(kept, template)
		}
	}
	store.data.Templates = kept
	store.data.TemplateItems = filterTemplateItems(store.data.TemplateItems, func(item models.TemplateItem) bool {
		return item.TemplateID != id
	})
	store.persist()
	return true
}

// ApplyTemplate turns a template back into editable drafts. A template without
// items yields one empty draft line.
func (store *DataStore) ApplyTemplate(templateID uuid.UUID) ([]DraftItem, error) {
	if _, ok := store.Template(templateID); !ok {
		return nil, store.invalid("error.template_not_found")
	}
	items := store.TemplateItems(templateID)
	if len(items) == 0 {
		return []DraftItem{{}}, nil
	}

	drafts := make([]DraftItem, 0, len(items))
	for _, item := range items {
		drafts = append(drafts, DraftItem{FoodID: item.FoodID, Grams: FormatGrams(item.Grams)})
	}
	return drafts, nil
}

// FormatGrams prints integral amounts without decimals and anything else with
// one.
func FormatGrams(value float64) string {
	if math.Trunc(value) == value {
		return fmt.Sprintf("%.0f", value)
	}
	return fmt.Sprintf("%.1f", value)
}

func sortByFoodName[T any](entries []T, food func(T) *models.Food) {
	sort.SliceStable(entries, func(i, j int) bool {
		left, right := food(entries[i]), food(entries[j])
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		}
		return foodNameKey(left.Name) < foodNameKey(right.Name)
	})
}
