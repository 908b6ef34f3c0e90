package models

import "github.com/google/uuid"

type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
}

type TemplateItem struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"templateID"`
	FoodID     uuid.UUID `json:"foodID"`
	Grams      float64   `json:"grams"`
}
