package httphandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/lllypuk/collabfront/internal/infrastructure/collabapi"
)

// TemplateFuncs returns the custom template functions for HTML templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// Time formatting
		"formatDateTime": formatDateTime,
		"timeAgo":        timeAgo,
		"capturedAt":     capturedAt,

		// String helpers
		"truncate":  truncate,
		"lower":     strings.ToLower,
		"upper":     strings.ToUpper,
		"join":      strings.Join,
		"pluralize": pluralize,

		// Conditional helpers
		"eq":      eq,
		"ne":      ne,
		"default": defaultValue,

		// Collection helpers
		"dict": dict,

		// Captured request helpers
		"field":      field,
		"prettyJSON": prettyJSON,

		// Math helpers
		"add": add,
	}
}

// Time formatting functions

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// Time-related constants for timeAgo function.
const (
	hoursPerDay  = 24
	daysPerWeek  = 7
	ellipsisSize = 3
)

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	case diff < hoursPerDay*time.Hour:
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	case diff < daysPerWeek*hoursPerDay*time.Hour:
		days := int(diff.Hours() / hoursPerDay)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("Jan 2")
	}
}

// capturedAt formats the capture time of a logged interaction.
func capturedAt(r collabapi.CapturedRequest) string {
	ts, ok := r.Timestamp()
	if !ok {
		return ""
	}
	return formatDateTime(ts)
}

// String helpers

// truncate truncates a string to n characters, adding "..." if truncated.
// Arguments are (n int, s string) to work with template pipes: {{.Title | truncate 30}}
func truncate(n int, s string) string {
	if len(s) <= n {
		return s
	}
	if n <= ellipsisSize {
		return s[:n]
	}
	return s[:n-ellipsisSize] + "..."
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// Conditional helpers

func eq(a, b any) bool {
	return a == b
}

func ne(a, b any) bool {
	return a != b
}

func defaultValue(def, val any) any {
	if val == nil || val == "" || val == 0 {
		return def
	}
	return val
}

// Collection helpers

func dict(pairs ...any) map[string]any {
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			m[key] = pairs[i+1]
		}
	}
	return m
}

// Captured request helpers

// field returns a string field of a captured request, or the raw JSON text
// when the value is not a string.
func field(r collabapi.CapturedRequest, key string) string {
	if s := r.String(key); s != "" {
		return s
	}
	if raw, ok := r[key]; ok && string(raw) != "null" {
		return string(raw)
	}
	return ""
}

func prettyJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Math helpers

func add(a, b int) int {
	return a + b
}
