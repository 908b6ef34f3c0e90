package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

func (handler *Handler) GetProfile(c *fiber.Ctx) error {
	var profile *models.Profile
	handler.withStore(func(store *services.DataStore) {
		profile = store.Profile()
	})
	if profile == nil {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.JSON(profile)
}

func (handler *Handler) SaveProfile(c *fiber.Ctx) error {
	var payload models.Profile
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var (
		saved models.Profile
		err   error
	)
	handler.withStore(func(store *services.DataStore) {
		saved, err = store.SaveProfile(payload)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(saved)
}
