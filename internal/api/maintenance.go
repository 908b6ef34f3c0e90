package api

import (
	"context"
	"time"

	"github.com/terraincognita07/dosekeeper/internal/services"
	"go.uber.org/zap"
)

const DefaultMaintenanceInterval = 5 * time.Minute

// RunMaintenance retries due glucose captures and takes the automatic backup
// once at start and then every interval, until ctx is cancelled.
func (handler *Handler) RunMaintenance(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	handler.runMaintenance(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			handler.runMaintenance(ctx)
		}
	}
}

func (handler *Handler) runMaintenance(ctx context.Context) {
	handler.mu.Lock()
	defer handler.mu.Unlock()

	if _, err := handler.store.CreateAutoBackupIfNeeded(); err != nil {
		handler.logger.Warn("automatic backup skipped", zap.Error(err))
	}
	handler.retryDueCaptures(ctx, handler.store)
}

func (handler *Handler) retryDueCaptures(ctx context.Context, store *services.DataStore) {
	for _, task := range store.DuePendingTasks() {
		if ctx.Err() != nil {
			return
		}
		result, err := store.ResolvePendingTask(ctx, task.ID)
		if err != nil {
			handler.logger.Debug("glucose capture not retried", zap.String("task_id", task.ID.String()), zap.Error(err))
			continue
		}
		if result.Resolved {
			handler.logger.Info("glucose capture resolved", zap.String("meal_id", task.MealID.String()), zap.String("kind", string(task.Kind)))
		}
	}
}
