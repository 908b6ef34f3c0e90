package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

const (
	exportDateTimeLayout = "02/01/2006 15:04"
	csvByteOrderMark     = "\ufeff"
	csvDelimiter         = ';'
)

var exportCSVHeaderKeys = []string{
	"csv.meal_id",
	"csv.date",
	"csv.food",
	"csv.grams_consumed",
	"csv.item_carbs",
	"csv.total_carbs",
	"csv.total_rations",
	"csv.total_insulin",
	"csv.ratio_units_per_gram",
	"csv.glucose_before",
	"csv.glucose_after_2h",
	"csv.dose_status",
	"csv.dose_confirmed_at",
	"csv.notes",
}

type CSVExportOptions struct {
	Localizer Localizer
	Location  *time.Location
	Range     ExportRange
}

// ExportCSV writes one row per meal item, plus one row for meals without
// items, newest meal first. Food names that no longer resolve are replaced by
// a localized placeholder.
func ExportCSV(doc models.Document, options CSVExportOptions) ([]byte, error) {
	localizer := options.Localizer
	if localizer == nil {
		localizer = keyLocalizer{}
	}
	location := options.Location
	if location == nil {
		location = time.UTC
	}
	decimalSeparator := localizer.Translate("csv.decimal_separator")
	if decimalSeparator == "csv.decimal_separator" || decimalSeparator == "" {
		decimalSeparator = "."
	}
	unknownFood := localizer.Translate("csv.unknown_food")

	foodNames := make(map[uuid.UUID]string, len(doc.Foods))
	for _, food := range doc.Foods {
		foodNames[food.ID] = food.Name
	}
	itemsByMeal := make(map[uuid.UUID][]models.MealItem, len(doc.Meals))
	for _, item := range doc.MealItems {
		itemsByMeal[item.MealID] = append(itemsByMeal[item.MealID], item)
	}

	meals := append([]models.Meal(nil), doc.Meals...)
	sortMeals(meals)

	var output bytes.Buffer
	output.WriteString(csvByteOrderMark)
	writer := csv.NewWriter(&output)
	writer.Comma = csvDelimiter

	headers := make([]string, 0, len(exportCSVHeaderKeys))
	for _, key := range exportCSVHeaderKeys {
		headers = append(headers, localizer.Translate(key))
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("%w: write csv header: %v", ErrIOFailure, err)
	}

	formatNumber := func(value float64) string {
		return formatDecimal(value, decimalSeparator)
	}

	for _, meal := range meals {
		if !options.Range.Contains(meal.Date.Time, location) {
			continue
		}
		mealColumns := exportMealColumns(meal, location, formatNumber)
		items := itemsByMeal[meal.ID]
		if len(items) == 0 {
			if err := writer.Write(exportRow(meal, "", "", "", mealColumns)); err != nil {
				return nil, fmt.Errorf("%w: write csv row: %v", ErrIOFailure, err)
			}
			continue
		}
		for _, item := range items {
			foodName, ok := foodNames[item.FoodID]
			if !ok {
				foodName = unknownFood
			}
			row := exportRow(meal, foodName, formatNumber(item.GramsConsumed), formatNumber(item.CarbsCalculated), mealColumns)
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("%w: write csv row: %v", ErrIOFailure, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("%w: flush csv: %v", ErrIOFailure, err)
	}
	return output.Bytes(), nil
}

type exportMealFields struct {
	date          string
	totalCarbs    string
	rations       string
	insulin       string
	ratio         string
	glucoseBefore string
	glucoseAfter  string
	confirmedAt   string
	notes         string
}

func exportMealColumns(meal models.Meal, location *time.Location, formatNumber func(float64) string) exportMealFields {
	fields := exportMealFields{
		date:          meal.Date.In(location).Format(exportDateTimeLayout),
		totalCarbs:    formatNumber(meal.TotalCarbs),
		rations:       formatNumber(meal.Rations),
		insulin:       formatNumber(meal.InsulinUnits),
		ratio:         formatNumber(meal.EffectiveRatio()),
		glucoseBefore: optionalInt(meal.GlucoseBeforeMgdl),
		glucoseAfter:  optionalInt(meal.GlucoseAfter2hMgdl),
	}
	if meal.DoseConfirmedAt != nil {
		fields.confirmedAt = meal.DoseConfirmedAt.In(location).Format(exportDateTimeLayout)
	}
	if meal.Notes != nil {
		fields.notes = *meal.Notes
	}
	return fields
}

func exportRow(meal models.Meal, foodName string, grams string, itemCarbs string, fields exportMealFields) []string {
	return []string{
		meal.ID.String(),
		fields.date,
		foodName,
		grams,
		itemCarbs,
		fields.totalCarbs,
		fields.rations,
		fields.insulin,
		fields.ratio,
		fields.glucoseBefore,
		fields.glucoseAfter,
		string(meal.DoseStatus),
		fields.confirmedAt,
		fields.notes,
	}
}

func formatDecimal(value float64, separator string) string {
	formatted := strconv.FormatFloat(value, 'f', 2, 64)
	if separator == "." {
		return formatted
	}
	return strings.Replace(formatted, ".", separator, 1)
}

func optionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}
