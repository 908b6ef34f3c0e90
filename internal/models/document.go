package models

import "time"

const CurrentSchemaVersion = 1

// Document is the full persisted state: one JSON object holding every
// collection the store owns.
type Document struct {
	SchemaVersion  int                  `json:"schemaVersion"`
	Profile        *Profile             `json:"profile"`
	Foods          []Food               `json:"foods"`
	Meals          []Meal               `json:"meals"`
	MealItems      []MealItem           `json:"mealItems"`
	Templates      []Template           `json:"templates"`
	TemplateItems  []TemplateItem       `json:"templateItems"`
	PendingGlucose []PendingGlucoseTask `json:"pendingGlucose"`
}

func EmptyDocument() Document {
	return Document{
		SchemaVersion:  CurrentSchemaVersion,
		Foods:          []Food{},
		Meals:          []Meal{},
		MealItems:      []MealItem{},
		Templates:      []Template{},
		TemplateItems:  []TemplateItem{},
		PendingGlucose: []PendingGlucoseTask{},
	}
}

func (doc Document) Clone() Document {
	cloned := Document{
		SchemaVersion:  doc.SchemaVersion,
		Profile:        doc.Profile.Clone(),
		Foods:          make([]Food, 0, len(doc.Foods)),
		Meals:          make([]Meal, 0, len(doc.Meals)),
		MealItems:      append(make([]MealItem, 0, len(doc.MealItems)), doc.MealItems...),
		Templates:      append(make([]Template, 0, len(doc.Templates)), doc.Templates...),
		TemplateItems:  append(make([]TemplateItem, 0, len(doc.TemplateItems)), doc.TemplateItems...),
		PendingGlucose: make([]PendingGlucoseTask, 0, len(doc.PendingGlucose)),
	}
	for _, food := range doc.Foods {
		cloned.Foods = append(cloned.Foods, food.Clone())
	}
	for _, meal := range doc.Meals {
		cloned.Meals = append(cloned.Meals, meal.Clone())
	}
	for _, task := range doc.PendingGlucose {
		cloned.PendingGlucose = append(cloned.PendingGlucose, task.Clone())
	}
	return cloned
}

// StoredDocument is the SQLite row holding one serialized Document.
type StoredDocument struct {
	Name          string    `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null;default:1"`
	Payload       []byte    `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (StoredDocument) TableName() string {
	return "documents"
}

// DocumentRevision records one write of a StoredDocument.
type DocumentRevision struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DocumentName  string    `gorm:"not null;index:idx_document_revisions_name_saved_at,priority:1" json:"documentName"`
	SchemaVersion int       `gorm:"not null;default:1" json:"schemaVersion"`
	PayloadSize   int       `gorm:"not null" json:"payloadSize"`
	SavedAt       time.Time `gorm:"not null;index:idx_document_revisions_name_saved_at,priority:2" json:"savedAt"`
}

func (DocumentRevision) TableName() string {
	return "document_revisions"
}
