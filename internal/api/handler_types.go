package api

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/db"
	"github.com/terraincognita07/dosekeeper/internal/i18n"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"github.com/terraincognita07/dosekeeper/internal/services"
	"go.uber.org/zap"
)

// Handler serves the JSON API. The data store is single-owner, so every call
// into it goes through mu.
type Handler struct {
	mu          sync.Mutex
	store       *services.DataStore
	sync        *services.GlucoseSyncService
	snapshots   *services.SnapshotService
	i18n        *i18n.Manager
	secretKey   []byte
	authEnabled bool
	authLimiter *attemptLimiter
	revisions   db.RevisionHistory
	logger      *zap.Logger
	now         func() time.Time
}

type HandlerOptions struct {
	Store       *services.DataStore
	Sync        *services.GlucoseSyncService
	Snapshots   *services.SnapshotService
	I18n        *i18n.Manager
	SecretKey   string
	AuthEnabled bool
	Revisions   db.RevisionHistory
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewHandler(options HandlerOptions) (*Handler, error) {
	if options.Store == nil {
		return nil, errors.New("data store is required")
	}
	if options.I18n == nil {
		return nil, errors.New("i18n manager is required")
	}
	if options.AuthEnabled && strings.TrimSpace(options.SecretKey) == "" {
		return nil, errors.New("secret key is required when auth is enabled")
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Handler{
		store:       options.Store,
		sync:        options.Sync,
		snapshots:   options.Snapshots,
		i18n:        options.I18n,
		secretKey:   []byte(options.SecretKey),
		authEnabled: options.AuthEnabled,
		authLimiter: newAttemptLimiter(authFailureLimit, authFailureWindow),
		revisions:   options.Revisions,
		logger:      options.Logger,
		now:         options.Now,
	}, nil
}

// withStore runs fn while holding the store lock.
func (handler *Handler) withStore(fn func(store *services.DataStore)) {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	fn(handler.store)
}

type draftsPayload struct {
	Items []services.DraftItem `json:"items"`
}

type saveMealPayload struct {
	Items []services.DraftItem `json:"items"`
	Notes string               `json:"notes"`
}

type doseStatusPayload struct {
	Status string `json:"status"`
}

type glucosePayload struct {
	Kind string `json:"kind"`
	Mgdl int    `json:"mgdl"`
}

type capturePayload struct {
	Kind string `json:"kind"`
}

type templatePayload struct {
	Name  string               `json:"name"`
	Items []services.DraftItem `json:"items"`
}

type foodPayload struct {
	Name         string  `json:"name"`
	CarbsPer100g float64 `json:"carbsPer100g"`
	Source       string  `json:"source"`
	Note         *string `json:"note"`
}

func (payload foodPayload) toFood(id uuid.UUID) models.Food {
	return models.Food{
		ID:           id,
		Name:         payload.Name,
		CarbsPer100g: payload.CarbsPer100g,
		Source:       payload.Source,
		Note:         payload.Note,
	}
}

type mealDetail struct {
	Meal  models.Meal                 `json:"meal"`
	Items []services.MealItemWithFood `json:"items"`
}

type templateDetail struct {
	Template models.Template                 `json:"template"`
	Items    []services.TemplateItemWithFood `json:"items"`
}

type calculationResponse struct {
	Calculation services.Calculation `json:"calculation"`
	CanSave     bool                 `json:"canSave"`
}

type glucoseCurrentResponse struct {
	State  services.SyncState  `json:"state"`
	Status services.SyncStatus `json:"status"`
	Trend  string              `json:"trend,omitempty"`
}

type pendingResponse struct {
	Tasks       []models.PendingGlucoseTask `json:"tasks"`
	Due         int                         `json:"due"`
	MaxAttempts int                         `json:"maxAttempts"`
}

type backupStatusResponse struct {
	Snapshots        []services.Snapshot       `json:"snapshots"`
	LatestAutoBackup *time.Time                `json:"latestAutoBackup,omitempty"`
	LastPersistError string                    `json:"lastPersistError,omitempty"`
	RecentSaves      []models.DocumentRevision `json:"recentSaves,omitempty"`
}
