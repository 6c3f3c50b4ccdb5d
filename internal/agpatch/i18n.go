package agpatch

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// Localizer resolves a dot-separated message key with {var} substitution.
type Localizer func(key string, vars map[string]string) string

var (
	localeOnce   sync.Once
	localeTables map[string]map[string]any
)

func loadLocaleTables() {
	localeTables = make(map[string]map[string]any, 2)
	for _, name := range []string{"en-US", "zh-CN"} {
		raw, err := localeAssets.ReadFile("locales/" + name + ".json")
		if err != nil {
			continue
		}
		var table map[string]any
		if err := json.Unmarshal(raw, &table); err != nil {
			continue
		}
		localeTables[name] = table
	}
}

// isZhLocale mirrors the product's locale rules: Chinese is the default
// language, anything explicitly starting with "en" selects English.
func isZhLocale(locale string) bool {
	l := strings.ToLower(strings.TrimSpace(locale))
	if l == "" {
		return true
	}
	return !strings.HasPrefix(l, "en")
}

func localeTableName(locale string) string {
	if isZhLocale(locale) {
		return "zh-CN"
	}
	return "en-US"
}

// Text looks up key in the table for locale. Unknown keys fall back to the
// key itself so the caller always gets something printable.
func Text(locale, key string, vars map[string]string) string {
	localeOnce.Do(loadLocaleTables)

	table := localeTables[localeTableName(locale)]
	msg, ok := lookupMessage(table, key)
	if !ok {
		// fall back to English before giving up on the bare key
		if msg2, ok2 := lookupMessage(localeTables["en-US"], key); ok2 {
			msg = msg2
		} else {
			msg = key
		}
	}
	for k, v := range vars {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

func lookupMessage(table map[string]any, key string) (string, bool) {
	if table == nil {
		return "", false
	}
	cur := any(table)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// localizerFor returns a Localizer bound to one locale.
func localizerFor(locale string) Localizer {
	return func(key string, vars map[string]string) string {
		return Text(locale, key, vars)
	}
}

// renderError produces the localized message for an error. PatchErrors
// render through their message key, everything else through Error().
func renderError(locale string, err error) string {
	var pe *PatchError
	if errors.As(err, &pe) && pe.Key != "" {
		return Text(locale, pe.Key, pe.Vars)
	}
	return err.Error()
}
