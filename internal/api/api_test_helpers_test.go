package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/db"
	"github.com/terraincognita07/dosekeeper/internal/i18n"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubFetcher struct {
	mu    sync.Mutex
	entry services.GlucoseEntry
	err   error
}

func (stub *stubFetcher) LatestGlucose(context.Context, string, string) (services.GlucoseEntry, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.err != nil {
		return services.GlucoseEntry{}, stub.err
	}
	return stub.entry, nil
}

type testAPI struct {
	app     *fiber.App
	handler *Handler
	fetcher *stubFetcher
	now     time.Time
	dataDir string
}

type testAPIOptions struct {
	authEnabled bool
	sqlite      bool
}

func newTestAPI(t *testing.T, options testAPIOptions) *testAPI {
	t.Helper()

	manager, err := i18n.NewManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("i18n.NewManager() unexpected error: %v", err)
	}

	env := &testAPI{
		fetcher: &stubFetcher{entry: services.GlucoseEntry{SGV: 123}},
		now:     time.Date(2026, time.March, 10, 13, 30, 0, 0, time.UTC),
		dataDir: t.TempDir(),
	}
	clock := func() time.Time { return env.now }

	syncService := services.NewGlucoseSyncService(services.GlucoseSyncOptions{Fetcher: env.fetcher, PollInterval: time.Hour, Now: clock})
	t.Cleanup(syncService.Shutdown)

	snapshots := services.NewSnapshotService(env.dataDir, clock, nil)

	var (
		repository services.DocumentRepository = db.NewFileDocumentRepository(filepath.Join(env.dataDir, db.DocumentFileName))
		revisions  db.RevisionHistory
	)
	if options.sqlite {
		database, err := db.OpenSQLite(filepath.Join(env.dataDir, "dosekeeper.db"), nil)
		if err != nil {
			t.Fatalf("db.OpenSQLite() unexpected error: %v", err)
		}
		t.Cleanup(func() { _ = db.CloseSQLite(database) })
		sqliteRepository := db.NewSQLiteDocumentRepository(database, db.DefaultDocumentName)
		repository, revisions = sqliteRepository, sqliteRepository
	}

	store := services.NewDataStore(services.DataStoreOptions{
		Repository: repository,
		Glucose:    syncService,
		Poller:     syncService,
		Snapshots:  snapshots,
		Localizer:  manager.Localizer(i18n.LangEN),
		Location:   time.UTC,
		Now:        clock,
	})
	store.Initialize()

	handler, err := NewHandler(HandlerOptions{
		Store:       store,
		Sync:        syncService,
		Snapshots:   snapshots,
		I18n:        manager,
		SecretKey:   testSecret,
		AuthEnabled: options.authEnabled,
		Revisions:   revisions,
		Now:         clock,
	})
	if err != nil {
		t.Fatalf("NewHandler() unexpected error: %v", err)
	}
	env.handler = handler
	env.app = NewApp(handler)
	return env
}

func (env *testAPI) do(t *testing.T, method string, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	switch typed := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(typed)
	case string:
		reader = bytes.NewReader([]byte(typed))
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func expectStatus(t *testing.T, response *http.Response, want int) {
	t.Helper()
	if response.StatusCode != want {
		body, _ := io.ReadAll(response.Body)
		t.Fatalf("expected status %d, got %d: %s", want, response.StatusCode, body)
	}
}

func decodeJSON[T any](t *testing.T, response *http.Response) T {
	t.Helper()
	var payload T
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return payload
}

func readAPIError(t *testing.T, response *http.Response) string {
	t.Helper()
	return decodeJSON[map[string]string](t, response)["error"]
}
