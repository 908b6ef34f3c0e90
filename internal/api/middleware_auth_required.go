package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthRequired checks the bearer token when auth is enabled; otherwise every
// request is let through as the single local user. Clients that keep sending
// bad tokens are refused for a while.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	if !handler.authEnabled {
		return c.Next()
	}

	key := clientKey(c)
	now := handler.now()
	if handler.authLimiter.blocked(key, now) {
		return handler.apiError(c, fiber.StatusTooManyRequests, "api.too_many_attempts")
	}

	subject, err := handler.authenticateRequest(c)
	if err != nil {
		handler.authLimiter.recordFailure(key, now)
		handler.logger.Debug("rejected request", zap.String("client", key), zap.Error(err))
		return handler.apiError(c, fiber.StatusUnauthorized, "api.unauthorized")
	}

	handler.authLimiter.reset(key)
	c.Locals(contextSubjectKey, subject)
	return c.Next()
}
