package redis

import (
	"encoding/json"
	"time"
)

// marshalJSON is a helper to marshal to JSON string.
func marshalJSON(v interface{}) string {
	b, _ := json.Marshal(v) //nolint:errcheck // marshal should not fail for basic types
	return string(b)
}

// unmarshalStrings parses a JSON array of strings.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out) //nolint:errcheck // best-effort parse from trusted Redis data
	return out
}

// unmarshalMap parses a JSON map.
func unmarshalMap(s string) map[string]string {
	if s == "" || s == "null" {
		return nil
	}
	out := make(map[string]string)
	_ = json.Unmarshal([]byte(s), &out) //nolint:errcheck // best-effort parse from trusted Redis data
	return out
}

// unmarshalInto parses a JSON blob into v.
func unmarshalInto(s string, v interface{}) error {
	return json.Unmarshal([]byte(s), v)
}

// timeString formats a timestamp for Hash storage.
func timeString(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// nowString returns the current time formatted for Hash storage.
func nowString() string { return timeString(time.Now()) }

// parseTime parses a Hash timestamp, returning the zero time on error.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // best-effort parse from trusted Redis data
	return t
}
