package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type GlucoseKind string

const (
	GlucoseBefore  GlucoseKind = "before"
	GlucoseAfter2h GlucoseKind = "after2h"
)

var legacyGlucoseKinds = map[string]GlucoseKind{
	"antes":      GlucoseBefore,
	"despues_2h": GlucoseAfter2h,
	"after_2h":   GlucoseAfter2h,
	"after-2h":   GlucoseAfter2h,
}

func ParseGlucoseKind(raw string) (GlucoseKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch GlucoseKind(normalized) {
	case GlucoseBefore, GlucoseAfter2h:
		return GlucoseKind(normalized), nil
	}
	if kind, ok := legacyGlucoseKinds[normalized]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("unknown glucose kind %q", raw)
}

func (kind *GlucoseKind) UnmarshalText(text []byte) error {
	parsed, err := ParseGlucoseKind(string(text))
	if err != nil {
		return err
	}
	*kind = parsed
	return nil
}

type PendingGlucoseTask struct {
	ID         uuid.UUID   `json:"id"`
	MealID     uuid.UUID   `json:"mealID"`
	Kind       GlucoseKind `json:"kind"`
	TargetDate Timestamp   `json:"targetDate"`
	CreatedAt  Timestamp   `json:"createdAt"`
	Attempts   int         `json:"attempts"`
	LastError  *string     `json:"lastError,omitempty"`
}

func (task PendingGlucoseTask) Clone() PendingGlucoseTask {
	task.LastError = cloneString(task.LastError)
	return task
}
