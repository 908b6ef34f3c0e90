package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/i18n"
	"go.uber.org/zap"
)

const (
	contextLanguageKey = "current_language"
	contextSubjectKey  = "current_subject"
	languageQueryParam = "lang"
)

func (handler *Handler) localizer(c *fiber.Ctx) i18n.Localizer {
	language, _ := c.Locals(contextLanguageKey).(string)
	return handler.i18n.Localizer(language)
}

// RequestLogger logs one line per request after the handler chain returns.
func (handler *Handler) RequestLogger(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()
	handler.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return err
}
