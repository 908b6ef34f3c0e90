package api

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

func (handler *Handler) ListFoods(c *fiber.Ctx) error {
	var foods []models.Food
	handler.withStore(func(store *services.DataStore) {
		foods = store.FoodsFiltered(c.Query("q"))
	})
	return c.JSON(foods)
}

func (handler *Handler) GetFood(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var (
		food  models.Food
		found bool
	)
	handler.withStore(func(store *services.DataStore) {
		food, found = store.Food(id)
	})
	if !found {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.JSON(food)
}

func (handler *Handler) CreateFood(c *fiber.Ctx) error {
	var payload foodPayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}
	return handler.upsertFood(c, payload.toFood(uuid.Nil), fiber.StatusCreated)
}

func (handler *Handler) UpdateFood(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}
	var payload foodPayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var found bool
	handler.withStore(func(store *services.DataStore) {
		_, found = store.Food(id)
	})
	if !found {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return handler.upsertFood(c, payload.toFood(id), fiber.StatusOK)
}

func (handler *Handler) upsertFood(c *fiber.Ctx, food models.Food, status int) error {
	var (
		saved models.Food
		err   error
	)
	handler.withStore(func(store *services.DataStore) {
		saved, err = store.UpsertFood(food)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(status).JSON(saved)
}

func (handler *Handler) DeleteFood(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var deleted bool
	handler.withStore(func(store *services.DataStore) {
		deleted = store.DeleteFood(id)
	})
	if !deleted {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MergeCatalog takes a catalog CSV as the raw request body.
func (handler *Handler) MergeCatalog(c *fiber.Ctx) error {
	rows, err := services.ParseCatalog(bytes.NewReader(c.Body()))
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	return c.JSON(handler.ApplyCatalog(rows))
}

// ApplyCatalog merges catalog rows into the store under the store lock. The
// catalog file watcher calls it from its own goroutine.
func (handler *Handler) ApplyCatalog(rows []services.CatalogRow) services.CatalogMergeResult {
	var result services.CatalogMergeResult
	handler.withStore(func(store *services.DataStore) {
		result = store.MergeCatalog(rows)
	})
	return result
}
