package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/i18n"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

func exportFixtureDocument() models.Document {
	bread := models.Food{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Pan", CarbsPer100g: 50, Source: "user"}
	withItems := models.Meal{
		ID:                  uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		TotalCarbs:          32.5,
		Rations:             3.25,
		InsulinUnits:        3.5,
		RatioInsulinPerGram: floatPtr(0.1),
		Date:                models.NewTimestamp(time.Date(2026, time.March, 10, 13, 30, 0, 0, time.UTC)),
		Notes:               stringPtr("comida; con pan"),
		GlucoseBeforeMgdl:   intPtr(110),
		DoseStatus:          models.DoseApplied,
		DoseConfirmedAt:     models.NewTimestampPtr(time.Date(2026, time.March, 10, 13, 35, 0, 0, time.UTC)),
	}
	empty := models.Meal{
		ID:           uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
		TotalCarbs:   20,
		Rations:      2,
		InsulinUnits: 2,
		Date:         models.NewTimestamp(time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)),
		DoseStatus:   models.DosePending,
	}
	return models.Document{
		Foods: []models.Food{bread},
		Meals: []models.Meal{empty, withItems},
		MealItems: []models.MealItem{
			{ID: uuid.New(), MealID: withItems.ID, FoodID: bread.ID, GramsConsumed: 40, CarbsCalculated: 20},
			{ID: uuid.New(), MealID: withItems.ID, FoodID: uuid.New(), GramsConsumed: 25, CarbsCalculated: 12.5},
		},
	}
}

func readExport(t *testing.T, payload []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(payload, []byte("\ufeff")) {
		t.Fatal("expected a byte order mark")
	}
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(payload, []byte("\ufeff"))))
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read exported csv: %v", err)
	}
	return records
}

func TestExportCSVRows(t *testing.T) {
	manager, err := i18n.NewManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("i18n.NewManager() unexpected error: %v", err)
	}

	payload, err := ExportCSV(exportFixtureDocument(), CSVExportOptions{Localizer: manager.Localizer(i18n.LangEN), Location: time.UTC})
	if err != nil {
		t.Fatalf("ExportCSV() unexpected error: %v", err)
	}
	records := readExport(t, payload)
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}

	header := strings.Join(records[0], ";")
	wantHeader := "meal_id;date;food;grams_consumed;item_carbs;total_carbs;total_rations;total_insulin;ratio_u_g;glucose_before;glucose_after_2h;dose_status;dose_confirmed_at;notes"
	if header != wantHeader {
		t.Fatalf("unexpected header\nwant %s\n got %s", wantHeader, header)
	}

	first := records[1]
	want := []string{"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", "10/03/2026 13:30", "Pan", "40.00", "20.00", "32.50", "3.25", "3.50", "0.10", "110", "", "applied", "10/03/2026 13:35", "comida; con pan"}
	if strings.Join(first, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected first row\nwant %v\n got %v", want, first)
	}
	if records[2][2] != "Unknown" || records[2][4] != "12.50" {
		t.Fatalf("expected the unknown food placeholder, got %v", records[2])
	}

	last := records[3]
	if last[0] != "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb" || last[2] != "" || last[3] != "" || last[8] != "0.10" {
		t.Fatalf("unexpected row for a meal without items: %v", last)
	}
}

func TestExportCSVRange(t *testing.T) {
	exportRange, err := ParseExportRange("2026-03-09", "2026-03-09", time.UTC)
	if err != nil {
		t.Fatalf("ParseExportRange() unexpected error: %v", err)
	}

	payload, err := ExportCSV(exportFixtureDocument(), CSVExportOptions{Location: time.UTC, Range: exportRange})
	if err != nil {
		t.Fatalf("ExportCSV() unexpected error: %v", err)
	}
	records := readExport(t, payload)
	if len(records) != 2 || records[1][0] != "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb" {
		t.Fatalf("expected only the 9 March meal, got %v", records)
	}
}

func TestExportCSVLocalizedDecimals(t *testing.T) {
	manager, err := i18n.NewManager(i18n.LangES)
	if err != nil {
		t.Fatalf("i18n.NewManager() unexpected error: %v", err)
	}

	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	payload, err := ExportCSV(exportFixtureDocument(), CSVExportOptions{Localizer: manager.Localizer(i18n.LangES), Location: madrid})
	if err != nil {
		t.Fatalf("ExportCSV() unexpected error: %v", err)
	}
	records := readExport(t, payload)
	if records[0][0] != "registro_id" {
		t.Fatalf("expected spanish headers, got %v", records[0])
	}
	if records[1][1] != "10/03/2026 14:30" || records[1][5] != "32,50" {
		t.Fatalf("expected local time and comma decimals, got %v", records[1])
	}
	if records[2][2] != "Desconocido" {
		t.Fatalf("expected the spanish placeholder, got %q", records[2][2])
	}
}

func TestFormatDecimal(t *testing.T) {
	if got := formatDecimal(2.5, ","); got != "2,50" {
		t.Fatalf("expected 2,50, got %q", got)
	}
	if got := formatDecimal(12, "."); got != "12.00" {
		t.Fatalf("expected 12.00, got %q", got)
	}
}
