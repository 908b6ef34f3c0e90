package db

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// DocumentRepository is the persistence contract shared by both drivers.
type DocumentRepository interface {
	Load() ([]byte, bool, error)
	Save(payload []byte) error
}

type StorageOptions struct {
	Driver  string
	DataDir string
	DBPath  string
	Logger  *zap.Logger
}

// OpenDocumentRepository builds the repository for the configured driver. The
// returned close function is never nil.
func OpenDocumentRepository(options StorageOptions) (DocumentRepository, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(options.Driver)) {
	case "", DriverFile:
		path := filepath.Join(options.DataDir, DocumentFileName)
		return NewFileDocumentRepository(path), func() error { return nil }, nil
	case DriverSQLite:
		dbPath := options.DBPath
		if dbPath == "" {
			dbPath = filepath.Join(options.DataDir, "dosekeeper.db")
		}
		database, err := OpenSQLite(dbPath, options.Logger)
		if err != nil {
			return nil, func() error { return nil }, err
		}
		return NewSQLiteDocumentRepository(database, DefaultDocumentName), func() error { return CloseSQLite(database) }, nil
	default:
		return nil, func() error { return nil }, fmt.Errorf("unknown storage driver %q", options.Driver)
	}
}
