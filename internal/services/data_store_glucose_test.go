package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/dosekeeper/internal/models"
)

func newFeedFixture(t *testing.T) (*storeFixture, models.Meal) {
	t.Helper()
	fixture := newStoreFixture(t)
	fixture.withProfile(t, func(profile *models.Profile) {
		profile.NightscoutURL = stringPtr("https://ns.example.com")
	})
	fixture.glucose.entry = GlucoseEntry{SGV: 100}
	bread := fixture.addFood(t, "Pan", 50)
	result := fixture.saveMeal(t, DraftItem{FoodID: bread.ID, Grams: "60"})
	return fixture, result.Meal
}

func TestEnqueueGlucoseCapture(t *testing.T) {
	fixture, meal := newFeedFixture(t)

	task, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h)
	if err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}
	if !task.TargetDate.Equal(meal.Date.Add(2 * time.Hour)) {
		t.Fatalf("expected target two hours after the meal, got %v", task.TargetDate.Time)
	}
	if task.Attempts != 0 || task.LastError != nil {
		t.Fatalf("expected a fresh task, got %#v", task)
	}

	again, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h)
	if err != nil || again.ID != task.ID {
		t.Fatalf("expected the existing task back, got %#v, %v", again, err)
	}
	if len(fixture.store.PendingGlucoseTasks()) != 1 {
		t.Fatal("expected no duplicate task")
	}

	if _, err := fixture.store.EnqueueGlucoseCapture(uuid.New(), models.GlucoseBefore); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for an unknown meal, got %v", err)
	}
	if _, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseKind("later")); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for an unknown kind, got %v", err)
	}
}

func TestDuePendingTasksFollowsSchedule(t *testing.T) {
	fixture, meal := newFeedFixture(t)
	if _, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h); err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}

	if due := fixture.store.DuePendingTasks(); len(due) != 0 {
		t.Fatalf("expected nothing due before the target, got %d", len(due))
	}
	fixture.clock.Advance(2 * time.Hour)
	if due := fixture.store.DuePendingTasks(); len(due) != 1 {
		t.Fatalf("expected the task to be due at the target, got %d", len(due))
	}
}

func TestResolvePendingTaskRetriesThenSucceeds(t *testing.T) {
	fixture, meal := newFeedFixture(t)
	task, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h)
	if err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}

	fixture.glucose.err = errFeedDown
	failed, err := fixture.store.ResolvePendingTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("ResolvePendingTask() should report feed failures in the result, got %v", err)
	}
	if failed.Resolved || failed.Stalled || failed.Task.Attempts != 1 {
		t.Fatalf("unexpected result %#v", failed)
	}
	if failed.Task.LastError == nil || *failed.Task.LastError != "feed down" {
		t.Fatalf("expected the error text to be kept, got %v", failed.Task.LastError)
	}
	wantNext := task.TargetDate.Add(RetryBaseDelay)
	if failed.NextAttemptAt == nil || !failed.NextAttemptAt.Equal(wantNext) {
		t.Fatalf("expected next attempt at %v, got %v", wantNext, failed.NextAttemptAt)
	}

	fixture.glucose.err = nil
	fixture.glucose.entry = GlucoseEntry{SGV: 180, Date: float64(task.TargetDate.Add(5 * time.Minute).UnixMilli())}
	resolved, err := fixture.store.ResolvePendingTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("ResolvePendingTask() unexpected error: %v", err)
	}
	if !resolved.Resolved || resolved.ValueMgdl == nil || *resolved.ValueMgdl != 180 {
		t.Fatalf("unexpected result %#v", resolved)
	}
	stored, _ := fixture.store.Meal(meal.ID)
	if stored.GlucoseAfter2hMgdl == nil || *stored.GlucoseAfter2hMgdl != 180 {
		t.Fatalf("expected the reading on the meal, got %v", stored.GlucoseAfter2hMgdl)
	}
	if stored.GlucoseBeforeMgdl == nil || *stored.GlucoseBeforeMgdl != 100 {
		t.Fatal("expected the pre-meal reading to be untouched")
	}
	if len(fixture.store.PendingGlucoseTasks()) != 0 {
		t.Fatal("expected the task to be removed")
	}
	if _, err := fixture.store.ResolvePendingTask(context.Background(), task.ID); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for a resolved task, got %v", err)
	}
}

func TestResolvePendingTaskStallsAfterMaxAttempts(t *testing.T) {
	fixture, meal := newFeedFixture(t)
	task, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h)
	if err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}
	fixture.glucose.err = errFeedDown

	var last ResolveResult
	for attempt := 1; attempt <= MaxGlucoseAttempts; attempt++ {
		last, err = fixture.store.ResolvePendingTask(context.Background(), task.ID)
		if err != nil {
			t.Fatalf("attempt %d: unexpected error %v", attempt, err)
		}
	}
	if !last.Stalled || last.NextAttemptAt != nil || last.Task.Attempts != MaxGlucoseAttempts {
		t.Fatalf("expected a stalled task, got %#v", last)
	}

	calls := fixture.glucose.callCount()
	if _, err := fixture.store.ResolvePendingTask(context.Background(), task.ID); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for a stalled task, got %v", err)
	}
	if fixture.glucose.callCount() != calls {
		t.Fatal("expected no fetch for a stalled task")
	}

	fixture.clock.Advance(48 * time.Hour)
	if due := fixture.store.DuePendingTasks(); len(due) != 0 {
		t.Fatal("expected stalled tasks never to be due")
	}
}

func TestResolvePendingTaskRejectsReadingOutsideWindow(t *testing.T) {
	fixture := newStoreFixture(t)
	fixture.withProfile(t, func(profile *models.Profile) {
		profile.NightscoutURL = stringPtr("https://ns.example.com")
	})
	bread := fixture.addFood(t, "Pan", 50)

	fixture.clock.now = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	fixture.glucose.err = errFeedDown
	saved := fixture.saveMeal(t, DraftItem{FoodID: bread.ID, Grams: "60"})
	if saved.PendingTask == nil {
		t.Fatal("expected a pre-meal capture task")
	}

	fixture.clock.now = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)
	fixture.glucose.err = nil
	fixture.glucose.entry = GlucoseEntry{SGV: 250, Date: float64(fixture.clock.now.UnixMilli())}

	result, err := fixture.store.ResolvePendingTask(context.Background(), saved.PendingTask.ID)
	if err != nil {
		t.Fatalf("ResolvePendingTask() unexpected error: %v", err)
	}
	if result.Resolved || result.ValueMgdl != nil {
		t.Fatalf("expected the late reading to be rejected, got %#v", result)
	}
	if result.Task.Attempts != 1 || result.Task.LastError == nil {
		t.Fatalf("expected a counted attempt with an error, got %#v", result.Task)
	}
	if !strings.Contains(*result.Task.LastError, ErrReadingOutsideWindow.Error()) {
		t.Fatalf("unexpected last error %q", *result.Task.LastError)
	}
	meal, _ := fixture.store.Meal(saved.Meal.ID)
	if meal.GlucoseBeforeMgdl != nil {
		t.Fatalf("expected no pre-meal reading, got %d", *meal.GlucoseBeforeMgdl)
	}
	if fixture.store.PendingMaxAttempts() != 1 {
		t.Fatalf("PendingMaxAttempts() = %d, want 1", fixture.store.PendingMaxAttempts())
	}
}

func TestCheckCaptureWindow(t *testing.T) {
	target := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		readAt time.Time
		wantOK bool
	}{
		{name: "on target", readAt: target, wantOK: true},
		{name: "early edge", readAt: target.Add(-CaptureTolerance), wantOK: true},
		{name: "late edge", readAt: target.Add(CaptureTolerance), wantOK: true},
		{name: "too early", readAt: target.Add(-CaptureTolerance - time.Second)},
		{name: "too late", readAt: target.Add(6 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkCaptureWindow(GlucoseEntry{SGV: 100, Date: float64(tt.readAt.UnixMilli())}, target)
			if tt.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrReadingOutsideWindow) {
				t.Fatalf("expected ErrReadingOutsideWindow, got %v", err)
			}
		})
	}

	if err := checkCaptureWindow(GlucoseEntry{SGV: 100}, target); !errors.Is(err, ErrReadingOutsideWindow) {
		t.Fatalf("expected undated entries to be rejected, got %v", err)
	}
}

func TestPendingMaxAttemptsTracksQueue(t *testing.T) {
	fixture, meal := newFeedFixture(t)
	if got := fixture.store.PendingMaxAttempts(); got != 0 {
		t.Fatalf("PendingMaxAttempts() on empty queue = %d", got)
	}
	first, _ := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h)
	if _, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseBefore); err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}

	fixture.glucose.err = errFeedDown
	for i := 0; i < 3; i++ {
		if _, err := fixture.store.ResolvePendingTask(context.Background(), first.ID); err != nil {
			t.Fatalf("ResolvePendingTask() unexpected error: %v", err)
		}
	}
	if got := fixture.store.PendingMaxAttempts(); got != 3 {
		t.Fatalf("PendingMaxAttempts() = %d, want 3", got)
	}
}

func TestResolvePendingTaskCancelledLeavesAttempts(t *testing.T) {
	fixture, meal := newFeedFixture(t)
	task, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h)
	if err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}
	fixture.glucose.err = fmt.Errorf("request failed: %w", context.Canceled)

	if _, err := fixture.store.ResolvePendingTask(context.Background(), task.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if tasks := fixture.store.PendingGlucoseTasks(); tasks[0].Attempts != 0 {
		t.Fatalf("expected attempts untouched, got %d", tasks[0].Attempts)
	}
}

func TestResolvePendingTaskRequiresFeed(t *testing.T) {
	fixture := newStoreFixture(t)
	fixture.withProfile(t, nil)
	bread := fixture.addFood(t, "Pan", 50)
	meal := fixture.saveMeal(t, DraftItem{FoodID: bread.ID, Grams: "60"}).Meal
	task, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseBefore)
	if err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}

	if _, err := fixture.store.ResolvePendingTask(context.Background(), task.ID); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData without a feed, got %v", err)
	}
	if fixture.glucose.callCount() != 0 {
		t.Fatal("expected no fetch without a feed")
	}
}

func TestRecordGlucose(t *testing.T) {
	fixture, meal := newFeedFixture(t)
	if _, err := fixture.store.EnqueueGlucoseCapture(meal.ID, models.GlucoseAfter2h); err != nil {
		t.Fatalf("EnqueueGlucoseCapture() unexpected error: %v", err)
	}

	for _, value := range []int{MinGlucoseMgdl - 1, MaxGlucoseMgdl + 1} {
		if _, err := fixture.store.RecordGlucose(meal.ID, models.GlucoseAfter2h, value); !errors.Is(err, ErrInvalidData) {
			t.Fatalf("RecordGlucose(%d) expected ErrInvalidData, got %v", value, err)
		}
	}
	if _, err := fixture.store.RecordGlucose(uuid.New(), models.GlucoseAfter2h, 120); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for an unknown meal, got %v", err)
	}

	updated, err := fixture.store.RecordGlucose(meal.ID, models.GlucoseAfter2h, MinGlucoseMgdl)
	if err != nil {
		t.Fatalf("RecordGlucose() unexpected error: %v", err)
	}
	if updated.GlucoseAfter2hMgdl == nil || *updated.GlucoseAfter2hMgdl != MinGlucoseMgdl {
		t.Fatalf("expected the manual reading on the meal, got %v", updated.GlucoseAfter2hMgdl)
	}
	if len(fixture.store.PendingGlucoseTasks()) != 0 {
		t.Fatal("expected the matching task to be dropped")
	}
}
