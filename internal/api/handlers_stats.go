package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

func (handler *Handler) GetStats(c *fiber.Ctx) error {
	period, err := services.ParseStatsPeriod(c.Query("period"))
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_filter")
	}

	var stats services.MealStats
	handler.withStore(func(store *services.DataStore) {
		stats = store.Stats(period)
	})
	return c.JSON(stats)
}
