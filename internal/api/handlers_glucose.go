package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

func (handler *Handler) CurrentGlucose(c *fiber.Ctx) error {
	response := glucoseCurrentResponse{State: services.SyncState{Phase: services.SyncIdle}}
	if handler.sync != nil {
		response.State = handler.sync.State()
		response.Status = handler.sync.Status()
	}
	if response.State.Entry != nil {
		response.Trend = response.State.Entry.Trend()
	}
	return c.JSON(response)
}

// RefreshGlucose starts a background fetch; poll /current for the result.
func (handler *Handler) RefreshGlucose(c *fiber.Ctx) error {
	if handler.sync != nil {
		handler.sync.TriggerRefresh()
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (handler *Handler) ListPendingGlucose(c *fiber.Ctx) error {
	var response pendingResponse
	handler.withStore(func(store *services.DataStore) {
		response.Tasks = store.PendingGlucoseTasks()
		response.Due = len(store.DuePendingTasks())
		response.MaxAttempts = store.PendingMaxAttempts()
	})
	if response.Tasks == nil {
		response.Tasks = []models.PendingGlucoseTask{}
	}
	return c.JSON(response)
}

func (handler *Handler) ResolvePendingGlucose(c *fiber.Ctx) error {
	id, ok := handler.parseID(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "api.invalid_id")
	}

	var (
		result services.ResolveResult
		err    error
	)
	handler.withStore(func(store *services.DataStore) {
		result, err = store.ResolvePendingTask(c.UserContext(), id)
	})
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(result)
}
