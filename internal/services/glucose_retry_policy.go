package services

import (
	"time"

	"github.com/terraincognita07/dosekeeper/internal/models"
)

const (
	MaxGlucoseAttempts = 6
	RetryBaseDelay     = 10 * time.Minute
	RetryMaxDelay      = 360 * time.Minute
	maxRetryExponent   = 10
)

// NextRetryDelay is min(base * 2^min(attempts, 10), max).
func NextRetryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > maxRetryExponent {
		attempts = maxRetryExponent
	}
	delay := RetryBaseDelay * time.Duration(1<<attempts)
	if delay > RetryMaxDelay {
		return RetryMaxDelay
	}
	return delay
}

func NextRetryDelayMinutes(attempts int) int {
	return int(NextRetryDelay(attempts) / time.Minute)
}

func IsStalled(task models.PendingGlucoseTask) bool {
	return task.Attempts >= MaxGlucoseAttempts
}

// NextAttemptAt schedules attempt n at the target time plus the delays of every
// earlier attempt.
func NextAttemptAt(task models.PendingGlucoseTask) time.Time {
	next := task.TargetDate.Time
	for attempt := 0; attempt < task.Attempts; attempt++ {
		next = next.Add(NextRetryDelay(attempt))
	}
	return next
}

func IsDue(task models.PendingGlucoseTask, now time.Time) bool {
	return !IsStalled(task) && !now.Before(NextAttemptAt(task))
}
