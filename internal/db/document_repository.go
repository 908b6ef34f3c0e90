package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/dosekeeper/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultDocumentName  = "main"
	maxDocumentRevisions = 100
)

// SQLiteDocumentRepository stores the serialized document as one row of the
// documents table. Each save also appends a revision record.
type SQLiteDocumentRepository struct {
	database *gorm.DB
	name     string
	now      func() time.Time
}

func NewSQLiteDocumentRepository(database *gorm.DB, name string) *SQLiteDocumentRepository {
	if name == "" {
		name = DefaultDocumentName
	}
	return &SQLiteDocumentRepository{database: database, name: name, now: time.Now}
}

func (repo *SQLiteDocumentRepository) Load() ([]byte, bool, error) {
	var stored models.StoredDocument
	err := repo.database.Where("name = ?", repo.name).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load document %s: %w", repo.name, err)
	}
	return stored.Payload, true, nil
}

func (repo *SQLiteDocumentRepository) Save(payload []byte) error {
	now := repo.now().UTC()
	stored := models.StoredDocument{
		Name:          repo.name,
		SchemaVersion: payloadSchemaVersion(payload),
		Payload:       payload,
		UpdatedAt:     now,
	}

	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"schema_version", "payload", "updated_at"}),
		}).Create(&stored).Error; err != nil {
			return fmt.Errorf("save document %s: %w", repo.name, err)
		}

		revision := models.DocumentRevision{
			DocumentName:  repo.name,
			SchemaVersion: stored.SchemaVersion,
			PayloadSize:   len(payload),
			SavedAt:       now,
		}
		if err := tx.Create(&revision).Error; err != nil {
			return fmt.Errorf("record revision for %s: %w", repo.name, err)
		}
		return pruneRevisions(tx, repo.name, maxDocumentRevisions)
	})
}

// RevisionHistory is implemented by repositories that keep a save log.
type RevisionHistory interface {
	Revisions(limit int) ([]models.DocumentRevision, error)
}

// Revisions lists the most recent saves, newest first.
func (repo *SQLiteDocumentRepository) Revisions(limit int) ([]models.DocumentRevision, error) {
	revisions := make([]models.DocumentRevision, 0)
	query := repo.database.Where("document_name = ?", repo.name).Order("saved_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&revisions).Error; err != nil {
		return nil, fmt.Errorf("list revisions for %s: %w", repo.name, err)
	}
	return revisions, nil
}

func pruneRevisions(tx *gorm.DB, name string, keep int) error {
	var ids []uint
	if err := tx.Model(&models.DocumentRevision{}).
		Where("document_name = ?", name).
		Order("saved_at DESC, id DESC").
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("find stale revisions: %w", err)
	}
	if len(ids) <= keep {
		return nil
	}
	if err := tx.Where("id IN ?", ids[keep:]).Delete(&models.DocumentRevision{}).Error; err != nil {
		return fmt.Errorf("delete stale revisions: %w", err)
	}
	return nil
}

func payloadSchemaVersion(payload []byte) int {
	var header struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(payload, &header); err != nil || header.SchemaVersion <= 0 {
		return models.CurrentSchemaVersion
	}
	return header.SchemaVersion
}
