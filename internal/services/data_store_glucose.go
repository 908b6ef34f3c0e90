package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/metrics"
	"github.com/terraincognita07/dosekeeper/internal/models"
	"go.uber.org/zap"
)

const (
	MinGlucoseMgdl        = 20
	MaxGlucoseMgdl        = 600
	PostMealCaptureOffset = 2 * time.Hour
	// CaptureTolerance bounds how far a feed reading may sit from a task's
	// target time and still count as that task's value.
	CaptureTolerance = 30 * time.Minute
)

var ErrReadingOutsideWindow = errors.New("glucose reading outside capture window")

type ResolveResult struct {
	Task          models.PendingGlucoseTask `json:"task"`
	Resolved      bool                      `json:"resolved"`
	ValueMgdl     *int                      `json:"valueMgdl,omitempty"`
	Stalled       bool                      `json:"stalled"`
	NextAttemptAt *time.Time                `json:"nextAttemptAt,omitempty"`
}

// PendingGlucoseTasks returns the queued capture tasks, oldest first.
func (store *DataStore) PendingGlucoseTasks() []models.PendingGlucoseTask {
	tasks := make([]models.PendingGlucoseTask, 0, len(store.data.PendingGlucose))
	for _, task := range store.data.PendingGlucose {
		tasks = append(tasks, task.Clone())
	}
	return tasks
}

// PendingMaxAttempts returns the highest attempt count among queued tasks, or
// 0 when the queue is empty.
func (store *DataStore) PendingMaxAttempts() int {
	highest := 0
	for _, task := range store.data.PendingGlucose {
		if task.Attempts > highest {
			highest = task.Attempts
		}
	}
	return highest
}

// DuePendingTasks returns the tasks whose next attempt time has passed.
func (store *DataStore) DuePendingTasks() []models.PendingGlucoseTask {
	now := store.currentTime()
	due := make([]models.PendingGlucoseTask, 0)
	for _, task := range store.data.PendingGlucose {
		if IsDue(task, now) {
			due = append(due, task.Clone())
		}
	}
	return due
}

// EnqueueGlucoseCapture queues a reading capture for a meal. A task already
// queued for the same meal and kind is returned unchanged.
func (store *DataStore) EnqueueGlucoseCapture(mealID uuid.UUID, kind models.GlucoseKind) (models.PendingGlucoseTask, error) {
	if _, err := models.ParseGlucoseKind(string(kind)); err != nil {
		return models.PendingGlucoseTask{}, store.invalid("error.glucose_kind_invalid")
	}
	meal := store.mealByID(mealID)
	if meal == nil {
		return models.PendingGlucoseTask{}, store.invalid("error.meal_not_found")
	}
	for _, task := range store.data.PendingGlucose {
		if task.MealID == mealID && task.Kind == kind {
			return task.Clone(), nil
		}
	}

	task := store.appendPendingTask(*meal, kind, store.currentTime(), nil)
	store.persist()
	return task, nil
}

func (store *DataStore) appendPendingTask(meal models.Meal, kind models.GlucoseKind, now time.Time, cause error) models.PendingGlucoseTask {
	target := meal.Date.Time
	if kind == models.GlucoseAfter2h {
		target = target.Add(PostMealCaptureOffset)
	}
	task := models.PendingGlucoseTask{
		ID:         uuid.New(),
		MealID:     meal.ID,
		Kind:       kind,
		TargetDate: models.NewTimestamp(target),
		CreatedAt:  models.NewTimestamp(now),
	}
	if cause != nil {
		message := cause.Error()
		task.LastError = &message
	}
	store.data.PendingGlucose = append(store.data.PendingGlucose, task)
	sortPendingTasks(store.data.PendingGlucose)
	metrics.PendingTasksEnqueued.WithLabelValues(string(kind)).Inc()
	return task.Clone()
}

// ResolvePendingTask makes one fetch attempt for a queued task. A reading taken
// within CaptureTolerance of the task's target is written onto the meal and
// the task is dropped. A failed fetch or a reading outside that window counts
// the attempt and keeps the error text. Feed failures are reported through the
// result, not the error.
func (store *DataStore) ResolvePendingTask(ctx context.Context, taskID uuid.UUID) (ResolveResult, error) {
	index := store.pendingTaskIndex(taskID)
	if index < 0 {
		return ResolveResult{}, store.invalid("error.task_not_found")
	}
	task := store.data.PendingGlucose[index]
	if IsStalled(task) {
		return ResolveResult{}, store.invalid("error.task_stalled")
	}
	profile := store.data.Profile
	if profile == nil {
		return ResolveResult{}, store.profileMissing()
	}
	if !profile.HasFeed() || store.glucose == nil {
		return ResolveResult{}, store.invalid("error.feed_not_configured")
	}

	entry, err := store.glucose.LatestGlucose(ctx, profile.FeedURL(), profile.FeedToken())
	if errors.Is(err, context.Canceled) {
		return ResolveResult{}, err
	}
	if err == nil {
		err = checkCaptureWindow(entry, task.TargetDate.Time)
	}
	if err != nil {
		return store.recordFailedAttempt(index, err), nil
	}

	value := entry.SGV
	store.setMealGlucose(task.MealID, task.Kind, value)
	store.removeTasks(task.MealID, task.Kind)
	store.persist()
	return ResolveResult{Task: task.Clone(), Resolved: true, ValueMgdl: &value}, nil
}

func checkCaptureWindow(entry GlucoseEntry, target time.Time) error {
	readAt := entry.Time()
	if entry.Date <= 0 || readAt.Before(target.Add(-CaptureTolerance)) || readAt.After(target.Add(CaptureTolerance)) {
		return fmt.Errorf("%w: read at %s, target %s", ErrReadingOutsideWindow,
			readAt.UTC().Format(time.RFC3339), target.UTC().Format(time.RFC3339))
	}
	return nil
}

func (store *DataStore) recordFailedAttempt(index int, cause error) ResolveResult {
	stored := &store.data.PendingGlucose[index]
	stored.Attempts++
	message := cause.Error()
	stored.LastError = &message
	store.persist()

	store.logger.Warn("glucose capture attempt failed",
		zap.String("task_id", stored.ID.String()),
		zap.Int("attempts", stored.Attempts),
		zap.Error(cause),
	)
	result := ResolveResult{Task: stored.Clone(), Stalled: IsStalled(*stored)}
	if !result.Stalled {
		next := NextAttemptAt(*stored)
		result.NextAttemptAt = &next
	}
	return result
}

// RecordGlucose stores a manual reading and drops the matching capture tasks.
func (store *DataStore) RecordGlucose(mealID uuid.UUID, kind models.GlucoseKind, mgdl int) (models.Meal, error) {
	if _, err := models.ParseGlucoseKind(string(kind)); err != nil {
		return models.Meal{}, store.invalid("error.glucose_kind_invalid")
	}
	if mgdl < MinGlucoseMgdl || mgdl > MaxGlucoseMgdl {
		return models.Meal{}, store.invalid("error.glucose_out_of_range")
	}
	if store.mealByID(mealID) == nil {
		return models.Meal{}, store.invalid("error.meal_not_found")
	}

	store.setMealGlucose(mealID, kind, mgdl)
	store.removeTasks(mealID, kind)
	store.persist()
	meal, _ := store.Meal(mealID)
	return meal, nil
}

func (store *DataStore) setMealGlucose(mealID uuid.UUID, kind models.GlucoseKind, mgdl int) {
	meal := store.mealByID(mealID)
	if meal == nil {
		return
	}
	value := mgdl
	if kind == models.GlucoseAfter2h {
		meal.GlucoseAfter2hMgdl = &value
		return
	}
	meal.GlucoseBeforeMgdl = &value
}

func (store *DataStore) removeTasks(mealID uuid.UUID, kind models.GlucoseKind) {
	store.data.PendingGlucose = filterPendingTasks(store.data.PendingGlucose, func(task models.PendingGlucoseTask) bool {
		return task.MealID != mealID || task.Kind != kind
	})
}

func (store *DataStore) pendingTaskIndex(id uuid.UUID) int {
	for index := range store.data.PendingGlucose {
		if store.data.PendingGlucose[index].ID == id {
			return index
		}
	}
	return -1
}
