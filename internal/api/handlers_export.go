package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

// ExportCSV accepts optional ?from= and ?to= days (YYYY-MM-DD).
func (handler *Handler) ExportCSV(c *fiber.Ctx) error {
	var (
		payload []byte
		err     error
	)
	handler.withStore(func(store *services.DataStore) {
		var exportRange services.ExportRange
		exportRange, err = services.ParseExportRange(c.Query("from"), c.Query("to"), store.Location())
		if err != nil {
			return
		}
		payload, err = store.ExportCSVRange(exportRange)
	})
	if errors.Is(err, services.ErrExportFromDateInvalid) || errors.Is(err, services.ErrExportToDateInvalid) || errors.Is(err, services.ErrExportRangeInvalid) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_filter")
	}
	if err != nil {
		return handler.respondError(c, err)
	}

	setAttachmentHeaders(c, "text/csv; charset=utf-8", buildExportFilename("dosekeeper_export", handler.now(), "csv"))
	return c.Send(payload)
}

func (handler *Handler) ExportBackup(c *fiber.Ctx) error {
	var (
		payload []byte
		err     error
	)
	handler.withStore(func(store *services.DataStore) {
		payload, err = store.ExportBackup()
	})
	if err != nil {
		return handler.respondError(c, err)
	}

	setAttachmentHeaders(c, fiber.MIMEApplicationJSONCharsetUTF8, buildExportFilename("dosekeeper_backup", handler.now(), "json"))
	return c.Send(payload)
}

// ImportBackup replaces the whole state with the backup in the request body.
func (handler *Handler) ImportBackup(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	var err error
	handler.withStore(func(store *services.DataStore) {
		err = store.ImportBackup(payload)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

const recentSavesLimit = 10

func (handler *Handler) BackupStatus(c *fiber.Ctx) error {
	response := backupStatusResponse{Snapshots: []services.Snapshot{}}
	if handler.snapshots != nil {
		snapshots, err := handler.snapshots.Snapshots()
		if err != nil {
			return handler.respondError(c, err)
		}
		if snapshots != nil {
			response.Snapshots = snapshots
		}
	}
	var revisionsErr error
	handler.withStore(func(store *services.DataStore) {
		response.LatestAutoBackup = store.LatestAutoBackupTime()
		if err := store.LastPersistError(); err != nil {
			response.LastPersistError = err.Error()
		}
		if handler.revisions != nil {
			response.RecentSaves, revisionsErr = handler.revisions.Revisions(recentSavesLimit)
		}
	})
	if revisionsErr != nil {
		return handler.respondError(c, revisionsErr)
	}
	return c.JSON(response)
}

func (handler *Handler) CreateSnapshot(c *fiber.Ctx) error {
	var (
		created bool
		err     error
	)
	handler.withStore(func(store *services.DataStore) {
		created, err = store.CreateAutoBackupIfNeeded()
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"created": created})
}

func (handler *Handler) RestoreLatestSnapshot(c *fiber.Ctx) error {
	var (
		restored bool
		err      error
	)
	handler.withStore(func(store *services.DataStore) {
		restored, err = store.RestoreLatestAutoBackup()
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"restored": restored})
}
