package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

func populatedFixture(t *testing.T) *storeFixture {
	t.Helper()
	fixture := newStoreFixture(t)
	fixture.withProfile(t, func(profile *models.Profile) {
		profile.Name = "Ana"
		profile.DailyCarbsGoal = floatPtr(180)
		profile.NightscoutURL = stringPtr("https://ns.example.com")
		profile.NightscoutToken = stringPtr("token")
	})
	fixture.glucose.err = errFeedDown
	bread := fixture.addFood(t, "Pan", 50)
	rice := fixture.addFood(t, "Arroz", 28)
	meal := fixture.saveMeal(t, DraftItem{FoodID: bread.ID, Grams: "60"}, DraftItem{FoodID: rice.ID, Grams: "150"})
	if _, err := fixture.store.UpdateDoseStatus(meal.Meal.ID, models.DoseApplied); err != nil {
		t.Fatalf("UpdateDoseStatus() unexpected error: %v", err)
	}
	if _, err := fixture.store.CreateTemplateFromMeal(meal.Meal.ID, "Comida"); err != nil {
		t.Fatalf("CreateTemplateFromMeal() unexpected error: %v", err)
	}
	return fixture
}

func TestBackupRoundTrip(t *testing.T) {
	source := populatedFixture(t)
	payload, err := source.store.ExportBackup()
	if err != nil {
		t.Fatalf("ExportBackup() unexpected error: %v", err)
	}

	target := newStoreFixture(t)
	if err := target.store.ImportBackup(payload); err != nil {
		t.Fatalf("ImportBackup() unexpected error: %v", err)
	}

	if diff := cmp.Diff(source.store.Document(), target.store.Document()); diff != "" {
		t.Fatalf("document mismatch after round trip (-want +got):\n%s", diff)
	}
	last := target.poller.restarts[len(target.poller.restarts)-1]
	if last != [2]string{"https://ns.example.com", "token"} {
		t.Fatalf("expected polling to follow the imported profile, got %v", last)
	}
}

func TestImportBackupRejectsBadPayloadsAndKeepsState(t *testing.T) {
	fixture := populatedFixture(t)
	before := fixture.store.Document()
	saves := fixture.repo.saves

	cases := []struct {
		name    string
		payload string
		message string
	}{
		{name: "empty", payload: "  ", message: "The backup file is not valid"},
		{name: "malformed", payload: `{"meals": [`, message: "The backup file is not valid"},
		{name: "future schema", payload: `{"schemaVersion": 2, "foods": []}`, message: "The backup comes from a newer version"},
		{name: "unknown dose status", payload: `{"meals": [{"id": "6f1c0d1e-8d2a-4a57-9c0e-0c7c0a6b9a11", "date": 0, "doseStatus": "maybe"}]}`, message: "The backup file is not valid"},
		{name: "missing dose status", payload: `{"meals": [{"id": "6f1c0d1e-8d2a-4a57-9c0e-0c7c0a6b9a11", "date": 0}]}`, message: "The backup file is not valid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fixture.store.ImportBackup([]byte(tc.payload))
			if !errors.Is(err, ErrInvalidData) {
				t.Fatalf("expected ErrInvalidData, got %v", err)
			}
			if err.Error() != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, err.Error())
			}
		})
	}

	if diff := cmp.Diff(before, fixture.store.Document()); diff != "" {
		t.Fatalf("state changed after rejected imports (-want +got):\n%s", diff)
	}
	if fixture.repo.saves != saves {
		t.Fatal("expected rejected imports not to write")
	}
}

func TestDecodeDocumentDefaults(t *testing.T) {
	doc, err := DecodeDocument([]byte("\ufeff" + `{"foods": [{"id": "6f1c0d1e-8d2a-4a57-9c0e-0c7c0a6b9a11", "name": "Pan", "carbsPer100g": 50, "source": "user"}]}`))
	if err != nil {
		t.Fatalf("DecodeDocument() unexpected error: %v", err)
	}
	if doc.SchemaVersion != models.CurrentSchemaVersion {
		t.Fatalf("expected a missing schema version to read as %d, got %d", models.CurrentSchemaVersion, doc.SchemaVersion)
	}
	if len(doc.Foods) != 1 || doc.Profile != nil {
		t.Fatalf("unexpected document %#v", doc)
	}
	if doc.Meals == nil || doc.PendingGlucose == nil {
		t.Fatal("expected absent collections to decode as empty")
	}
}

func TestDecodeDocumentLegacyGlucoseKinds(t *testing.T) {
	payload := `{"pendingGlucose": [{"id": "6f1c0d1e-8d2a-4a57-9c0e-0c7c0a6b9a11", "mealID": "7f1c0d1e-8d2a-4a57-9c0e-0c7c0a6b9a11", "kind": "despues_2h", "targetDate": 0, "createdAt": 0, "attempts": 2}]}`
	doc, err := DecodeDocument([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeDocument() unexpected error: %v", err)
	}
	if doc.PendingGlucose[0].Kind != models.GlucoseAfter2h {
		t.Fatalf("expected legacy kind to map to after2h, got %q", doc.PendingGlucose[0].Kind)
	}
}

func TestEncodeDocumentUsesEpochMilliseconds(t *testing.T) {
	fixture := populatedFixture(t)
	payload, err := EncodeDocument(fixture.store.Document())
	if err != nil {
		t.Fatalf("EncodeDocument() unexpected error: %v", err)
	}
	want := `"date": 1773149400000`
	if !strings.Contains(string(payload), want) {
		t.Fatalf("expected %s in payload:\n%s", want, payload)
	}
	if !strings.Contains(string(payload), `"schemaVersion": 1`) {
		t.Fatal("expected the schema version to be written")
	}
}
