package i18n

import (
	"testing"
	"testing/fstest"
)

func mustManager(t *testing.T, language string) *Manager {
	t.Helper()
	manager, err := NewManager(language)
	if err != nil {
		t.Fatalf("NewManager() unexpected error: %v", err)
	}
	return manager
}

func TestNewManagerNormalizesDefaultLanguage(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "spanish", raw: "es", expected: LangES},
		{name: "region tag", raw: "en_GB", expected: LangEN},
		{name: "unsupported falls back to spanish", raw: "fr", expected: LangES},
		{name: "empty falls back to spanish", raw: "", expected: LangES},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			manager := mustManager(t, tc.raw)
			if manager.DefaultLanguage() != tc.expected {
				t.Fatalf("expected default %q, got %q", tc.expected, manager.DefaultLanguage())
			}
		})
	}
}

func TestTranslateFallsBackToDefaultThenKey(t *testing.T) {
	files := fstest.MapFS{
		"es.json": {Data: []byte(`{"greeting":"hola","only.es":"solo"}`)},
		"en.json": {Data: []byte(`{"greeting":"hello"}`)},
	}
	manager, err := NewManagerFromFS("es", files)
	if err != nil {
		t.Fatalf("NewManagerFromFS() unexpected error: %v", err)
	}

	if got := manager.Translate("en", "greeting"); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if got := manager.Translate("en", "only.es"); got != "solo" {
		t.Fatalf("expected default-language fallback, got %q", got)
	}
	if got := manager.Translate("en", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}

func TestNewManagerFromFSRequiresBothLocales(t *testing.T) {
	files := fstest.MapFS{
		"en.json": {Data: []byte(`{"greeting":"hello"}`)},
	}
	if _, err := NewManagerFromFS("en", files); err == nil {
		t.Fatal("expected error when es locale is missing")
	}
}

func TestDetectFromAcceptLanguage(t *testing.T) {
	manager := mustManager(t, LangES)

	if got := manager.DetectFromAcceptLanguage("fr-FR, en-US;q=0.8, es;q=0.5"); got != LangEN {
		t.Fatalf("expected en, got %q", got)
	}
	if got := manager.DetectFromAcceptLanguage("de"); got != LangES {
		t.Fatalf("expected default es, got %q", got)
	}
}

func TestLocalizerFormatsAdvisory(t *testing.T) {
	localizer := mustManager(t, LangES).Localizer("en")

	got := localizer.Translatef("goal.carbs_exceeded", "120.0", "100.0")
	if got != "Daily carbs goal exceeded (120.0 g / 100.0 g)" {
		t.Fatalf("unexpected advisory %q", got)
	}
	if localizer.Language() != LangEN {
		t.Fatalf("expected en localizer, got %q", localizer.Language())
	}
}
