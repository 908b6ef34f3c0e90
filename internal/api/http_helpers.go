package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/services"
	"go.uber.org/zap"
)

func (handler *Handler) apiError(c *fiber.Ctx, status int, key string) error {
	return c.Status(status).JSON(fiber.Map{"error": handler.localizer(c).Translate(key)})
}

// respondError maps store error kinds to HTTP statuses. Store errors already
// carry a localized message; anything else is logged and reported generically.
func (handler *Handler) respondError(c *fiber.Ctx, err error) error {
	var storeErr *services.StoreError
	switch {
	case errors.Is(err, services.ErrProfileMissing):
		return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidData):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return handler.apiError(c, fiber.StatusServiceUnavailable, "api.internal_error")
	case errors.As(err, &storeErr):
		handler.logger.Error("store operation failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": storeErr.Error()})
	default:
		handler.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return handler.apiError(c, fiber.StatusInternalServerError, "api.internal_error")
	}
}

// errorHandler renders errors that escape a route, such as unknown paths.
func (handler *Handler) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code == fiber.StatusNotFound {
			return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}
	return handler.respondError(c, err)
}

func (handler *Handler) parseID(c *fiber.Ctx, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (handler *Handler) parseBody(c *fiber.Ctx, target any) bool {
	return c.BodyParser(target) == nil
}

func setAttachmentHeaders(c *fiber.Ctx, contentType string, filename string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}

func buildExportFilename(prefix string, now time.Time, extension string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), extension)
}
