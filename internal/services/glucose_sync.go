package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 60 * time.Second

type SyncPhase string

const (
	SyncIdle    SyncPhase = "idle"
	SyncLoading SyncPhase = "loading"
	SyncSuccess SyncPhase = "success"
	SyncError   SyncPhase = "error"
)

// SyncState is the live feed state. Entry is set only in SyncSuccess and
// Message only in SyncError.
type SyncState struct {
	Phase   SyncPhase     `json:"phase"`
	Entry   *GlucoseEntry `json:"entry,omitempty"`
	Message string        `json:"message,omitempty"`
}

type SyncStatus struct {
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastErrorAt         *time.Time `json:"lastErrorAt,omitempty"`
	LastErrorMessage    string     `json:"lastErrorMessage,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

type GlucoseFetcher interface {
	LatestGlucose(ctx context.Context, baseURL string, token string) (GlucoseEntry, error)
}

type GlucoseSyncOptions struct {
	Fetcher      GlucoseFetcher
	Logger       *zap.Logger
	PollInterval time.Duration
	Now          func() time.Time
	ErrorMessage string
}

// GlucoseSyncService polls the glucose feed in the background. It only ever
// writes its own state and status; the data store is never touched from here.
type GlucoseSyncService struct {
	fetcher      GlucoseFetcher
	logger       *zap.Logger
	interval     time.Duration
	now          func() time.Time
	errorMessage string

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	state      SyncState
	status     SyncStatus
	feedURL    string
	token      string
	generation uint64
	cancelLoop context.CancelFunc
	closed     bool
}

func NewGlucoseSyncService(options GlucoseSyncOptions) *GlucoseSyncService {
	if options.Fetcher == nil {
		options.Fetcher = NewGlucoseFeedClient(nil)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if strings.TrimSpace(options.ErrorMessage) == "" {
		options.ErrorMessage = "could not connect to the glucose feed"
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &GlucoseSyncService{
		fetcher:      options.Fetcher,
		logger:       options.Logger,
		interval:     options.PollInterval,
		now:          options.Now,
		errorMessage: options.ErrorMessage,
		baseCtx:      baseCtx,
		baseCancel:   baseCancel,
		state:        SyncState{Phase: SyncIdle},
	}
}

// LatestGlucose performs one synchronous fetch without touching the live state.
func (service *GlucoseSyncService) LatestGlucose(ctx context.Context, baseURL string, token string) (GlucoseEntry, error) {
	return service.fetcher.LatestGlucose(ctx, baseURL, token)
}

// Restart cancels any running poll loop and, when feedURL is set, starts a new
// one that fetches immediately and then once per interval.
func (service *GlucoseSyncService) Restart(feedURL string, token string) {
	service.mu.Lock()
	if service.cancelLoop != nil {
		service.cancelLoop()
		service.cancelLoop = nil
	}
	service.generation++
	service.feedURL = strings.TrimSpace(feedURL)
	service.token = strings.TrimSpace(token)

	if service.feedURL == "" || service.closed {
		service.state = SyncState{Phase: SyncIdle}
		service.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(service.baseCtx)
	service.cancelLoop = cancel
	generation := service.generation
	service.wg.Add(1)
	service.mu.Unlock()

	go service.poll(loopCtx, generation)
}

func (service *GlucoseSyncService) poll(ctx context.Context, generation uint64) {
	defer service.wg.Done()

	ticker := time.NewTicker(service.interval)
	defer ticker.Stop()

	service.refresh(ctx, generation)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.refresh(ctx, generation)
		}
	}
}

// Refresh runs one fetch for the current configuration and waits for it.
func (service *GlucoseSyncService) Refresh(ctx context.Context) {
	service.mu.Lock()
	generation := service.generation
	service.mu.Unlock()
	service.refresh(ctx, generation)
}

// TriggerRefresh runs Refresh in the background; Shutdown waits for it.
func (service *GlucoseSyncService) TriggerRefresh() {
	service.mu.Lock()
	if service.closed {
		service.mu.Unlock()
		return
	}
	service.wg.Add(1)
	service.mu.Unlock()

	go func() {
		defer service.wg.Done()
		service.Refresh(service.baseCtx)
	}()
}

func (service *GlucoseSyncService) refresh(ctx context.Context, generation uint64) {
	service.mu.Lock()
	if generation != service.generation {
		service.mu.Unlock()
		return
	}
	feedURL, token := service.feedURL, service.token
	if feedURL == "" {
		service.state = SyncState{Phase: SyncIdle}
		service.mu.Unlock()
		return
	}
	service.state = SyncState{Phase: SyncLoading}
	service.mu.Unlock()

	entry, err := service.fetcher.LatestGlucose(ctx, feedURL, token)

	service.mu.Lock()
	defer service.mu.Unlock()
	if generation != service.generation {
		// Reconfigured or shut down while the request was in flight.
		return
	}

	now := service.now()
	if err != nil {
		service.logger.Warn("glucose feed fetch failed", zap.Error(err), zap.Int("consecutive_failures", service.status.ConsecutiveFailures+1))
		service.state = SyncState{Phase: SyncError, Message: service.errorMessage}
		service.status = SyncStatus{
			LastSuccessAt:       service.status.LastSuccessAt,
			LastErrorAt:         &now,
			LastErrorMessage:    err.Error(),
			ConsecutiveFailures: service.status.ConsecutiveFailures + 1,
		}
		return
	}

	fetched := entry
	service.state = SyncState{Phase: SyncSuccess, Entry: &fetched}
	service.status = SyncStatus{LastSuccessAt: &now}
}

func (service *GlucoseSyncService) State() SyncState {
	service.mu.Lock()
	defer service.mu.Unlock()
	state := service.state
	if state.Entry != nil {
		entry := *state.Entry
		state.Entry = &entry
	}
	return state
}

func (service *GlucoseSyncService) Status() SyncStatus {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.status
}

// Shutdown stops polling and waits for in-flight fetches to return.
func (service *GlucoseSyncService) Shutdown() {
	service.mu.Lock()
	service.closed = true
	service.generation++
	service.feedURL = ""
	service.token = ""
	if service.cancelLoop != nil {
		service.cancelLoop()
		service.cancelLoop = nil
	}
	service.state = SyncState{Phase: SyncIdle}
	service.mu.Unlock()

	service.baseCancel()
	service.wg.Wait()
}
