package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/i18n"
	"github.com/terraincognita07/dosekeeper/internal/metrics"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"go.uber.org/zap"
)

// DocumentRepository stores the serialized document. Save must replace the
// previous payload atomically.
type DocumentRepository interface {
	Load() ([]byte, bool, error)
	Save(payload []byte) error
}

type GlucoseReader interface {
	LatestGlucose(ctx context.Context, baseURL string, token string) (GlucoseEntry, error)
}

type GlucosePoller interface {
	Restart(feedURL string, token string)
}

type ReminderScheduler interface {
	ScheduleReminder(mealID uuid.UUID, mealDate time.Time)
}

type SnapshotManager interface {
	CreateAutoBackupIfNeeded(doc models.Document) (bool, error)
	LatestSnapshot() (Snapshot, bool, error)
}

type Localizer interface {
	Translate(key string) string
	Translatef(key string, args ...any) string
}

type DataStoreOptions struct {
	Repository DocumentRepository
	Glucose    GlucoseReader
	Poller     GlucosePoller
	Snapshots  SnapshotManager
	Reminders  ReminderScheduler
	Localizer  Localizer
	Catalog    []CatalogRow
	Location   *time.Location
	Now        func() time.Time
	Logger     *zap.Logger
}

// DataStore owns every entity collection. It is not safe for concurrent use:
// callers must funnel all operations through a single owner.
type DataStore struct {
	repository DocumentRepository
	glucose    GlucoseReader
	poller     GlucosePoller
	snapshots  SnapshotManager
	reminders  ReminderScheduler
	localizer  Localizer
	catalog    []CatalogRow
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger

	data           models.Document
	lastPersistErr error
}

func NewDataStore(options DataStoreOptions) *DataStore {
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Reminders == nil {
		options.Reminders = NopReminderScheduler{}
	}
	if options.Localizer == nil {
		options.Localizer = defaultLocalizer()
	}

	return &DataStore{
		repository: options.Repository,
		glucose:    options.Glucose,
		poller:     options.Poller,
		snapshots:  options.Snapshots,
		reminders:  options.Reminders,
		localizer:  options.Localizer,
		catalog:    options.Catalog,
		location:   options.Location,
		now:        options.Now,
		logger:     options.Logger,
		data:       models.EmptyDocument(),
	}
}

// Initialize loads the persisted document, merges the seed catalog and starts
// glucose polling for the loaded profile.
func (store *DataStore) Initialize() {
	store.load()
	store.seedCatalog()
	store.restartPolling()
}

// Shutdown stops glucose polling. Writes are synchronous, so nothing is left
// to flush.
func (store *DataStore) Shutdown() {
	if store.poller != nil {
		store.poller.Restart("", "")
	}
}

func (store *DataStore) Location() *time.Location {
	return store.location
}

// Document returns a deep copy of the current state.
func (store *DataStore) Document() models.Document {
	return store.data.Clone()
}

// ReplaceDocument swaps the whole state for doc, as an import or restore does.
func (store *DataStore) ReplaceDocument(doc models.Document) {
	replacement := doc.Clone()
	NormalizeDocument(&replacement)
	store.data = replacement
	store.persist()
	store.restartPolling()
}

func (store *DataStore) LastPersistError() error {
	return store.lastPersistErr
}

func (store *DataStore) load() {
	store.data = models.EmptyDocument()
	if store.repository == nil {
		return
	}

	payload, found, err := store.repository.Load()
	if err != nil {
		store.logger.Error("load document failed, starting empty", zap.Error(err))
		return
	}
	if !found {
		return
	}

	doc, err := DecodeDocument(payload)
	if err != nil {
		store.logger.Error("stored document unreadable, starting empty", zap.Error(err))
		return
	}
	NormalizeDocument(&doc)
	store.data = doc
}

func (store *DataStore) seedCatalog() {
	if len(store.catalog) == 0 {
		return
	}
	merged := MergeCatalog(store.data.Foods, store.catalog)
	if foodsEqual(merged, store.data.Foods) {
		return
	}
	store.data.Foods = merged
	store.persist()
}

// persist writes the document through the repository. Failures are logged and
// remembered but never returned: the in-memory state stays authoritative.
func (store *DataStore) persist() {
	if store.repository == nil {
		return
	}

	payload, err := EncodeDocument(store.data)
	if err == nil {
		err = store.repository.Save(payload)
	}
	if err != nil {
		store.lastPersistErr = err
		metrics.PersistFailures.Inc()
		store.logger.Error("persist document failed", zap.Error(err))
		return
	}
	store.lastPersistErr = nil
}

func (store *DataStore) restartPolling() {
	if store.poller == nil {
		return
	}
	store.poller.Restart(store.data.Profile.FeedURL(), store.data.Profile.FeedToken())
}

func (store *DataStore) invalid(key string) error {
	return newStoreError(ErrInvalidData, store.localizer.Translate(key))
}

func (store *DataStore) ioFailure(key string) error {
	return newStoreError(ErrIOFailure, store.localizer.Translate(key))
}

func (store *DataStore) profileMissing() error {
	return newStoreError(ErrProfileMissing, store.localizer.Translate("error.profile_missing"))
}

func (store *DataStore) currentTime() time.Time {
	return store.now().In(store.location)
}

// NormalizeDocument is the single integrity pass: it restores collection
// order and drops every row whose references no longer resolve.
func NormalizeDocument(doc *models.Document) {
	doc.SchemaVersion = models.CurrentSchemaVersion
	if doc.Foods == nil {
		doc.Foods = []models.Food{}
	}
	if doc.Meals == nil {
		doc.Meals = []models.Meal{}
	}
	if doc.Templates == nil {
		doc.Templates = []models.Template{}
	}

	SortFoods(doc.Foods)
	sortMeals(doc.Meals)
	sortTemplates(doc.Templates)
	sortPendingTasks(doc.PendingGlucose)

	foodIDs := make(map[uuid.UUID]struct{}, len(doc.Foods))
	for _, food := range doc.Foods {
		foodIDs[food.ID] = struct{}{}
	}
	mealIDs := make(map[uuid.UUID]struct{}, len(doc.Meals))
	for index := range doc.Meals {
		mealIDs[doc.Meals[index].ID] = struct{}{}
		if doc.Meals[index].DoseStatus != models.DoseApplied {
			doc.Meals[index].DoseConfirmedAt = nil
		}
	}
	templateIDs := make(map[uuid.UUID]struct{}, len(doc.Templates))
	for _, template := range doc.Templates {
		templateIDs[template.ID] = struct{}{}
	}

	mealItems := make([]models.MealItem, 0, len(doc.MealItems))
	for _, item := range doc.MealItems {
		if hasID(mealIDs, item.MealID) && hasID(foodIDs, item.FoodID) {
			mealItems = append(mealItems, item)
		}
	}
	doc.MealItems = mealItems

	templateItems := make([]models.TemplateItem, 0, len(doc.TemplateItems))
	for _, item := range doc.TemplateItems {
		if hasID(templateIDs, item.TemplateID) && hasID(foodIDs, item.FoodID) {
			templateItems = append(templateItems, item)
		}
	}
	doc.TemplateItems = templateItems

	pending := make([]models.PendingGlucoseTask, 0, len(doc.PendingGlucose))
	for _, task := range doc.PendingGlucose {
		if hasID(mealIDs, task.MealID) {
			pending = append(pending, task)
		}
	}
	doc.PendingGlucose = pending
}

func hasID(ids map[uuid.UUID]struct{}, id uuid.UUID) bool {
	_, ok := ids[id]
	return ok
}

func sortMeals(meals []models.Meal) {
	sort.SliceStable(meals, func(i, j int) bool {
		if meals[i].Date.Equal(meals[j].Date.Time) {
			return meals[i].ID.String() < meals[j].ID.String()
		}
		return meals[i].Date.After(meals[j].Date.Time)
	})
}

func sortTemplates(templates []models.Template) {
	sort.SliceStable(templates, func(i, j int) bool {
		if templates[i].CreatedAt.Equal(templates[j].CreatedAt.Time) {
			return templates[i].ID.String() < templates[j].ID.String()
		}
		return templates[i].CreatedAt.After(templates[j].CreatedAt.Time)
	})
}

func sortPendingTasks(tasks []models.PendingGlucoseTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt.Time) {
			return tasks[i].ID.String() < tasks[j].ID.String()
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt.Time)
	})
}

func foodsEqual(left []models.Food, right []models.Food) bool {
	if len(left) != len(right) {
		return false
	}
	for index := range left {
		a, b := left[index], right[index]
		if a.ID != b.ID || a.Name != b.Name || a.CarbsPer100g != b.CarbsPer100g || a.Source != b.Source {
			return false
		}
		if (a.Note == nil) != (b.Note == nil) || (a.Note != nil && *a.Note != *b.Note) {
			return false
		}
	}
	return true
}

// defaultLocalizer serves stores built without a Localizer from the embedded
// English catalog.
func defaultLocalizer() Localizer {
	manager, err := i18n.NewManager(i18n.LangEN)
	if err != nil {
		return keyLocalizer{}
	}
	return manager.Localizer(i18n.LangEN)
}

type keyLocalizer struct{}

func (keyLocalizer) Translate(key string) string {
	return key
}

func (keyLocalizer) Translatef(key string, args ...any) string {
	if len(args) == 0 {
		return key
	}
	return strings.TrimSpace(key + " " + fmt.Sprintln(args...))
}
