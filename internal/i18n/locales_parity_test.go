package i18n

import (
	"encoding/json"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"testing"
)

var formatVerbPattern = regexp.MustCompile(`%[sdvf]`)

func TestLocaleKeysParity(t *testing.T) {
	en := mustLoadLocaleMessages(t, LangEN)
	es := mustLoadLocaleMessages(t, LangES)

	if missing := missingKeys(en, es); len(missing) > 0 {
		t.Errorf("keys missing in es locale: %s", strings.Join(missing, ", "))
	}
	if missing := missingKeys(es, en); len(missing) > 0 {
		t.Errorf("keys missing in en locale: %s", strings.Join(missing, ", "))
	}
}

func TestLocaleFormatVerbsMatch(t *testing.T) {
	en := mustLoadLocaleMessages(t, LangEN)
	es := mustLoadLocaleMessages(t, LangES)

	for key, english := range en {
		spanish, ok := es[key]
		if !ok {
			continue
		}
		englishVerbs := formatVerbPattern.FindAllString(english, -1)
		spanishVerbs := formatVerbPattern.FindAllString(spanish, -1)
		if strings.Join(englishVerbs, "") != strings.Join(spanishVerbs, "") {
			t.Errorf("format verbs differ for %q: en=%v es=%v", key, englishVerbs, spanishVerbs)
		}
	}
}

func mustLoadLocaleMessages(t *testing.T, language string) map[string]string {
	t.Helper()

	content, err := fs.ReadFile(embeddedLocales, "locales/"+language+".json")
	if err != nil {
		t.Fatalf("read locale %q: %v", language, err)
	}

	messages := map[string]string{}
	if err := json.Unmarshal(content, &messages); err != nil {
		t.Fatalf("parse locale %q: %v", language, err)
	}
	if len(messages) == 0 {
		t.Fatalf("locale %q is empty", language)
	}
	return messages
}

func missingKeys(source map[string]string, target map[string]string) []string {
	missing := make([]string, 0)
	for key := range source {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
