package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

func (handler *Handler) CalculateMeal(c *fiber.Ctx) error {
	var payload draftsPayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var response calculationResponse
	handler.withStore(func(store *services.DataStore) {
		response.Calculation = store.ComputeCalculation(payload.Items)
		response.CanSave = store.CanSaveMeal(payload.Items)
	})
	return c.JSON(response)
}

func (handler *Handler) SaveMeal(c *fiber.Ctx) error {
	var payload saveMealPayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var (
		result services.SaveMealResult
		err    error
	)
	handler.withStore(func(store *services.DataStore) {
		result, err = store.SaveMeal(c.UserContext(), payload.Items, payload.Notes)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (handler *Handler) ListMeals(c *fiber.Ctx) error {
	dayFilter, err := services.ParseDayFilter(c.Query("day"))
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_filter")
	}
	doseFilter, err := services.ParseDoseFilter(c.Query("dose"))
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_filter")
	}

	var meals []models.Meal
	handler.withStore(func(store *services.DataStore) {
		meals = store.FilteredMeals(c.Query("q"), dayFilter, doseFilter)
	})
	return c.JSON(meals)
}

func (handler *Handler) GetMeal(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var (
		detail mealDetail
		found  bool
	)
	handler.withStore(func(store *services.DataStore) {
		detail.Meal, found = store.Meal(id)
		if found {
			detail.Items = store.MealItemsWithFood(id)
		}
	})
	if !found {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.JSON(detail)
}

func (handler *Handler) DeleteMeal(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var deleted bool
	handler.withStore(func(store *services.DataStore) {
		deleted = store.DeleteMeal(id)
	})
	if !deleted {
		return handler.apiError(c, fiber.StatusNotFound, "api.not_found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) UpdateDoseStatus(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}
	var payload doseStatusPayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var (
		meal models.Meal
		err  error
	)
	handler.withStore(func(store *services.DataStore) {
		meal, err = store.UpdateDoseStatus(id, models.DoseStatus(payload.Status))
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(meal)
}

func (handler *Handler) RecordGlucose(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}
	var payload glucosePayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}
	kind, err := models.ParseGlucoseKind(payload.Kind)
	if err != nil {
		return handler.apiError(c, fiber.StatusUnprocessableEntity, "api.invalid_request")
	}

	var meal models.Meal
	handler.withStore(func(store *services.DataStore) {
		meal, err = store.RecordGlucose(id, kind, payload.Mgdl)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(meal)
}

func (handler *Handler) EnqueueGlucoseCapture(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}
	var payload capturePayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}
	kind, err := models.ParseGlucoseKind(payload.Kind)
	if err != nil {
		return handler.apiError(c, fiber.StatusUnprocessableEntity, "api.invalid_request")
	}

	var task models.PendingGlucoseTask
	handler.withStore(func(store *services.DataStore) {
		task, err = store.EnqueueGlucoseCapture(id, kind)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(task)
}

func (handler *Handler) CreateTemplateFromMeal(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}
	var payload templatePayload
	if !handler.parseBody(c, &payload) {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_request")
	}

	var (
		template models.Template
		err      error
	)
	handler.withStore(func(store *services.DataStore) {
		template, err = store.CreateTemplateFromMeal(id, payload.Name)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(template)
}
