package models

import "github.com/google/uuid"

const (
	FoodSourceCatalog = "catalog"
	FoodSourceUser    = "user"
)

type Food struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CarbsPer100g float64   `json:"carbsPer100g"`
	Source       string    `json:"source"`
	Note         *string   `json:"note,omitempty"`
}

func (food Food) Clone() Food {
	food.Note = cloneString(food.Note)
	return food
}
