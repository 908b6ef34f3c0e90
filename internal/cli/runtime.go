package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/terraincognita07/dosekeeper/internal/config"
	"github.com/terraincognita07/dosekeeper/internal/db"
	"github.com/terraincognita07/dosekeeper/internal/i18n"
	"github.com/terraincognita07/dosekeeper/internal/services"
	"github.com/terraincognita07/dosekeeper/seed"
	"go.uber.org/zap"
)

// runtime is the wired service graph shared by every command.
type runtime struct {
	cfg       config.Config
	logger    *zap.Logger
	i18n      *i18n.Manager
	sync      *services.GlucoseSyncService
	snapshots *services.SnapshotService
	store     *services.DataStore
	revisions db.RevisionHistory // nil for drivers without a save log

	closeRepository func() error
}

type runtimeOptions struct {
	// polling starts the background glucose poller for the stored profile.
	polling bool
	now     func() time.Time
}

func openRuntime(cfg config.Config, logger *zap.Logger, options runtimeOptions) (*runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.now == nil {
		options.now = time.Now
	}

	manager, err := i18n.NewManager(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("i18n init failed: %w", err)
	}
	localizer := manager.Localizer(cfg.DefaultLanguage)

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	repository, closeRepository, err := db.OpenDocumentRepository(db.StorageOptions{
		Driver:  cfg.StorageDriver,
		DataDir: cfg.DataDir,
		DBPath:  cfg.DBPath,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	syncService := services.NewGlucoseSyncService(services.GlucoseSyncOptions{
		Logger:       logger.Named("glucose"),
		PollInterval: cfg.PollInterval,
		Now:          options.now,
		ErrorMessage: localizer.Translate("sync.fetch_failed"),
	})
	snapshots := services.NewSnapshotService(cfg.DataDir, options.now, logger.Named("snapshots"))

	storeOptions := services.DataStoreOptions{
		Repository: repository,
		Glucose:    syncService,
		Snapshots:  snapshots,
		Reminders:  services.LogReminderScheduler{Logger: logger.Named("reminders")},
		Localizer:  localizer,
		Catalog:    catalog,
		Location:   cfg.Location(),
		Now:        options.now,
		Logger:     logger.Named("store"),
	}
	if options.polling {
		storeOptions.Poller = syncService
	}
	store := services.NewDataStore(storeOptions)
	store.Initialize()

	revisions, _ := repository.(db.RevisionHistory)

	return &runtime{
		cfg:             cfg,
		logger:          logger,
		i18n:            manager,
		sync:            syncService,
		snapshots:       snapshots,
		store:           store,
		revisions:       revisions,
		closeRepository: closeRepository,
	}, nil
}

// loadCatalog returns the embedded catalog followed by the rows of the
// optional external catalog, so external rows win on a name clash.
func loadCatalog(path string) ([]services.CatalogRow, error) {
	rows, err := services.ParseCatalog(bytes.NewReader(seed.FoodsCSV))
	if err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	if path == "" {
		return rows, nil
	}

	external, err := services.LoadCatalogFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return rows, nil
	}
	if err != nil {
		return nil, err
	}
	return append(rows, external...), nil
}

func (rt *runtime) Close() error {
	rt.store.Shutdown()
	rt.sync.Shutdown()
	return rt.closeRepository()
}
