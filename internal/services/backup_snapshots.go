package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/terraincognita07/dosekeeper/internal/db"
	"github.com/terraincognita07/dosekeeper/internal/metrics"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"go.uber.org/zap"
)

const (
	SnapshotDirName     = "backups"
	SnapshotPrefix      = "auto_backup_"
	SnapshotKeep        = 7
	SnapshotMinInterval = 20 * time.Hour
	snapshotNameLayout  = "20060102_150405"
)

type Snapshot struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	ModTime time.Time `json:"modTime"`
	Payload []byte    `json:"-"`
}

// SnapshotService keeps rotating automatic backups of the document under
// <dataDir>/backups.
type SnapshotService struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

func NewSnapshotService(dataDir string, now func() time.Time, logger *zap.Logger) *SnapshotService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		dir:    filepath.Join(dataDir, SnapshotDirName),
		now:    now,
		logger: logger,
	}
}

func (service *SnapshotService) Dir() string {
	return service.dir
}

// CreateAutoBackupIfNeeded writes a snapshot when the newest one is missing or
// at least 20 hours old, then prunes down to the 7 newest.
func (service *SnapshotService) CreateAutoBackupIfNeeded(doc models.Document) (bool, error) {
	now := service.now()
	snapshots, err := service.list()
	if err != nil {
		return false, err
	}
	if len(snapshots) > 0 && now.Sub(snapshots[0].ModTime) < SnapshotMinInterval {
		return false, nil
	}

	payload, err := EncodeDocument(doc)
	if err != nil {
		return false, err
	}

	path := filepath.Join(service.dir, SnapshotPrefix+now.Format(snapshotNameLayout)+".json")
	if err := db.WriteFileAtomic(path, payload, 0o600); err != nil {
		return false, fmt.Errorf("%w: write snapshot: %v", ErrIOFailure, err)
	}
	if err := os.Chtimes(path, now, now); err != nil {
		return false, fmt.Errorf("%w: stamp snapshot: %v", ErrIOFailure, err)
	}
	metrics.SnapshotsCreated.Inc()
	service.logger.Info("snapshot created", zap.String("path", path))

	if err := service.prune(); err != nil {
		service.logger.Warn("prune snapshots failed", zap.Error(err))
	}
	return true, nil
}

// LatestSnapshot reads the most recently modified snapshot.
func (service *SnapshotService) LatestSnapshot() (Snapshot, bool, error) {
	snapshots, err := service.list()
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(snapshots) == 0 {
		return Snapshot{}, false, nil
	}

	latest := snapshots[0]
	payload, err := os.ReadFile(latest.Path)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: read snapshot: %v", ErrIOFailure, err)
	}
	latest.Payload = payload
	return latest, true, nil
}

// Snapshots lists the snapshots newest first, without payloads.
func (service *SnapshotService) Snapshots() ([]Snapshot, error) {
	return service.list()
}

func (service *SnapshotService) list() ([]Snapshot, error) {
	entries, err := os.ReadDir(service.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %v", ErrIOFailure, err)
	}

	snapshots := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, SnapshotPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name:    name,
			Path:    filepath.Join(service.dir, name),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].ModTime.Equal(snapshots[j].ModTime) {
			return snapshots[i].Name > snapshots[j].Name
		}
		return snapshots[i].ModTime.After(snapshots[j].ModTime)
	})
	return snapshots, nil
}

func (service *SnapshotService) prune() error {
	snapshots, err := service.list()
	if err != nil {
		return err
	}
	if len(snapshots) <= SnapshotKeep {
		return nil
	}

	var errs []error
	for _, snapshot := range snapshots[SnapshotKeep:] {
		if err := os.Remove(snapshot.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
