package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

func (handler *Handler) ListTemplates(c *fiber.Ctx) error {
	var templates []models.Template
	handler.withStore(func(store *services.DataStore) {
		templates = store.Templates()
	})
	return c.JSON(templates)
}

func (handler *Handler) GetTemplate(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var (
		detail templateDetail
		found  bool
	)
	handler.withStore(func(store *services.DataStore) {
		detail.Template, found = store.Template(id)
		if found {
			detail.Items = store.TemplateItemsWithFood(id)
		}
	})
	if !found {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.JSON(detail)
}

func (handler *Handler) CreateTemplate(c *fiber.Ctx) error {
	var payload templatePayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var (
		template models.Template
		err      error
	)
	handler.withStore(func(store *services.DataStore) {
		template, err = store.SaveTemplate(payload.Name, payload.Items)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(template)
}

func (handler *Handler) DeleteTemplate(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var deleted bool
	handler.withStore(func(store *services.DataStore) {
		deleted = store.DeleteTemplate(id)
	})
	if !deleted {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ApplyTemplate returns the template as editable draft lines.
func (handler *Handler) ApplyTemplate(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var (
		drafts []services.DraftItem
		err    error
	)
	handler.withStore(func(store *services.DataStore) {
		drafts, err = store.ApplyTemplate(id)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(draftsPayload{Items: drafts})
}
