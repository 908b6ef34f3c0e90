package services

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NopReminderScheduler struct{}

func (NopReminderScheduler) ScheduleReminder(uuid.UUID, time.Time) {}

// LogReminderScheduler records post-meal reminders in the log. Delivery is
// left to whatever consumes the log stream.
type LogReminderScheduler struct {
	Logger *zap.Logger
}

func (scheduler LogReminderScheduler) ScheduleReminder(mealID uuid.UUID, mealDate time.Time) {
	logger := scheduler.Logger
	if logger == nil {
		return
	}
	logger.Info("post-meal glucose reminder scheduled",
		zap.String("meal_id", mealID.String()),
		zap.Time("due_at", mealDate.Add(PostMealCaptureOffset)),
	)
}
