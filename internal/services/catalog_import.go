package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

const catalogMinColumns = 4

type CatalogRow struct {
	Name         string
	CarbsPer100g float64
	Source       string
	Note         *string
}

// ParseCatalog reads a comma-separated food catalog with a header row.
// Rows that cannot describe a food are skipped rather than failing the import.
func ParseCatalog(reader io.Reader) ([]CatalogRow, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	rows := make([]CatalogRow, 0)
	headerSkipped := false
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		if !headerSkipped {
			headerSkipped = true
			continue
		}

		row, ok := catalogRowFromRecord(record)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func catalogRowFromRecord(record []string) (CatalogRow, bool) {
	if len(record) < catalogMinColumns {
		return CatalogRow{}, false
	}

	name := strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff"))
	if name == "" {
		return CatalogRow{}, false
	}
	carbs, ok := ParseDecimal(record[1])
	if !ok || carbs < 0 {
		return CatalogRow{}, false
	}

	row := CatalogRow{
		Name:         name,
		CarbsPer100g: carbs,
		Source:       strings.TrimSpace(record[2]),
	}
	if note := strings.TrimSpace(record[3]); note != "" {
		row.Note = &note
	}
	return row, true
}

// MergeCatalog applies catalog rows onto the existing foods keyed by lower-cased
// name. Matches are updated in place so their IDs (and every item pointing at
// them) survive; unmatched rows become new foods.
func MergeCatalog(existing []models.Food, rows []CatalogRow) []models.Food {
	merged := make([]models.Food, 0, len(existing)+len(rows))
	for _, food := range existing {
		merged = append(merged, food.Clone())
	}
	if len(rows) == 0 {
		SortFoods(merged)
		return merged
	}

	indexByName := make(map[string]int, len(merged))
	for index, food := range merged {
		key := foodNameKey(food.Name)
		if _, exists := indexByName[key]; !exists {
			indexByName[key] = index
		}
	}

	for _, row := range rows {
		key := foodNameKey(row.Name)
		if index, ok := indexByName[key]; ok {
			merged[index].CarbsPer100g = row.CarbsPer100g
			merged[index].Source = row.Source
			merged[index].Note = cloneNote(row.Note)
			continue
		}

		merged = append(merged, models.Food{
			ID:           uuid.New(),
			Name:         row.Name,
			CarbsPer100g: row.CarbsPer100g,
			Source:       row.Source,
			Note:         cloneNote(row.Note),
		})
		indexByName[key] = len(merged) - 1
	}

	SortFoods(merged)
	return merged
}

func SortFoods(foods []models.Food) {
	sort.SliceStable(foods, func(i, j int) bool {
		left, right := foodNameKey(foods[i].Name), foodNameKey(foods[j].Name)
		if left == right {
			return foods[i].ID.String() < foods[j].ID.String()
		}
		return left < right
	})
}

func foodNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cloneNote(note *string) *string {
	if note == nil {
		return nil
	}
	copied := *note
	return &copied
}
