package db

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const DocumentFileName = "dosekeeper_data.json"

// FileDocumentRepository keeps the document as a single JSON file.
type FileDocumentRepository struct {
	path string
}

func NewFileDocumentRepository(path string) *FileDocumentRepository {
	return &FileDocumentRepository{path: path}
}

func (repo *FileDocumentRepository) Path() string {
	return repo.path
}

func (repo *FileDocumentRepository) Load() ([]byte, bool, error) {
	payload, err := os.ReadFile(repo.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read document: %w", err)
	}
	return payload, true, nil
}

func (repo *FileDocumentRepository) Save(payload []byte) error {
	if err := WriteFileAtomic(repo.path, payload, 0o600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// WriteFileAtomic writes payload to a temporary file next to path and renames
// it into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, payload []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := temp.Name()
	defer os.Remove(tempPath)

	if _, err := temp.Write(payload); err != nil {
		temp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
