package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/terraincognita07/dosekeeper/internal/models"
)

var ErrUnsupportedSchema = errors.New("unsupported schema version")

// EncodeDocument serializes the document as indented JSON with dates in epoch
// milliseconds.
func EncodeDocument(doc models.Document) ([]byte, error) {
	doc.SchemaVersion = models.CurrentSchemaVersion
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %v", ErrIOFailure, err)
	}
	return payload, nil
}

// DecodeDocument parses a document payload. Nothing is returned unless the
// whole payload decodes; an absent schema version is read as the first one.
func DecodeDocument(payload []byte) (models.Document, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(payload, []byte("\ufeff")))
	if len(trimmed) == 0 {
		return models.Document{}, fmt.Errorf("%w: empty document", ErrInvalidData)
	}

	doc := models.EmptyDocument()
	doc.SchemaVersion = 0
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return models.Document{}, fmt.Errorf("%w: decode document: %v", ErrInvalidData, err)
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = models.CurrentSchemaVersion
	}
	if doc.SchemaVersion > models.CurrentSchemaVersion {
		return models.Document{}, fmt.Errorf("%w: %w %d", ErrInvalidData, ErrUnsupportedSchema, doc.SchemaVersion)
	}
	for _, meal := range doc.Meals {
		if !meal.DoseStatus.Valid() {
			return models.Document{}, fmt.Errorf("%w: meal %s has no dose status", ErrInvalidData, meal.ID)
		}
	}
	return doc, nil
}
