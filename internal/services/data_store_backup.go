package services

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// ExportBackup serializes the full current state.
func (store *DataStore) ExportBackup() ([]byte, error) {
	payload, err := EncodeDocument(store.data)
	if err != nil {
		return nil, store.ioFailure("error.backup_write_failed")
	}
	return payload, nil
}

// ImportBackup replaces the whole state with a backup payload. A payload that
// does not decode leaves the current state untouched.
func (store *DataStore) ImportBackup(payload []byte) error {
	doc, err := DecodeDocument(payload)
	if err != nil {
		store.logger.Warn("backup import rejected", zap.Error(err))
		if errors.Is(err, ErrUnsupportedSchema) {
			return store.invalid("error.backup_unsupported_version")
		}
		return store.invalid("error.backup_invalid")
	}
	store.ReplaceDocument(doc)
	store.logger.Info("backup imported", zap.Int("meals", len(doc.Meals)), zap.Int("foods", len(doc.Foods)))
	return nil
}

func (store *DataStore) ExportCSV() ([]byte, error) {
	return store.ExportCSVRange(ExportRange{})
}

// ExportCSVRange exports only the meals on days inside exportRange.
func (store *DataStore) ExportCSVRange(exportRange ExportRange) ([]byte, error) {
	payload, err := ExportCSV(store.data, CSVExportOptions{Localizer: store.localizer, Location: store.location, Range: exportRange})
	if err != nil {
		store.logger.Error("csv export failed", zap.Error(err))
		return nil, store.ioFailure("error.export_failed")
	}
	return payload, nil
}

// CreateAutoBackupIfNeeded asks the snapshot manager for a rotating backup of
// the current state.
func (store *DataStore) CreateAutoBackupIfNeeded() (bool, error) {
	if store.snapshots == nil {
		return false, nil
	}
	created, err := store.snapshots.CreateAutoBackupIfNeeded(store.data)
	if err != nil {
		store.logger.Warn("automatic backup failed", zap.Error(err))
		return false, store.ioFailure("error.backup_write_failed")
	}
	return created, nil
}

// RestoreLatestAutoBackup replaces the state with the newest snapshot. It
// reports false when no snapshot exists.
func (store *DataStore) RestoreLatestAutoBackup() (bool, error) {
	if store.snapshots == nil {
		return false, nil
	}
	snapshot, found, err := store.snapshots.LatestSnapshot()
	if err != nil {
		store.logger.Warn("read latest snapshot failed", zap.Error(err))
		return false, store.ioFailure("error.backup_read_failed")
	}
	if !found {
		return false, nil
	}
	if err := store.ImportBackup(snapshot.Payload); err != nil {
		return false, err
	}
	store.logger.Info("snapshot restored", zap.String("name", snapshot.Name))
	return true, nil
}

func (store *DataStore) LatestAutoBackupTime() *time.Time {
	if store.snapshots == nil {
		return nil
	}
	snapshot, found, err := store.snapshots.LatestSnapshot()
	if err != nil || !found {
		return nil
	}
	modTime := snapshot.ModTime
	return &modTime
}
