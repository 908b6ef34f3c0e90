package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const catalogDebounce = 300 * time.Millisecond

// LoadCatalogFile parses the catalog CSV at path.
func LoadCatalogFile(path string) ([]CatalogRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()
	return ParseCatalog(file)
}

// CatalogWatcher re-reads an external catalog file whenever it changes and
// hands the parsed rows to apply. The parent directory is watched so editors
// that replace the file by rename are picked up too.
type CatalogWatcher struct {
	path     string
	apply    func([]CatalogRow)
	logger   *zap.Logger
	debounce time.Duration
}

func NewCatalogWatcher(path string, apply func([]CatalogRow), logger *zap.Logger) *CatalogWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogWatcher{
		path:     filepath.Clean(path),
		apply:    apply,
		logger:   logger,
		debounce: catalogDebounce,
	}
}

// Run blocks until ctx is cancelled or the watcher fails.
func (watcher *CatalogWatcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(filepath.Dir(watcher.path)); err != nil {
		return fmt.Errorf("watch catalog directory: %w", err)
	}
	watcher.logger.Info("watching catalog", zap.String("path", watcher.path))

	timer := time.NewTimer(watcher.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != watcher.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(watcher.debounce)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			watcher.logger.Warn("catalog watcher error", zap.Error(err))
		case <-timer.C:
			watcher.reload()
		}
	}
}

func (watcher *CatalogWatcher) reload() {
	rows, err := LoadCatalogFile(watcher.path)
	if err != nil {
		watcher.logger.Warn("reload catalog failed", zap.Error(err))
		return
	}
	watcher.apply(rows)
	watcher.logger.Info("catalog reloaded", zap.Int("rows", len(rows)))
}
