package codec

import (
	"bytes"
	"encoding/json"
)

// JSONSettings tunes JSON encoding behaviour. The zero value produces
// compact output identical to json.Marshal. Settings apply uniformly to
// every payload encoded by the codec; the publisher never varies them per
// subscription.
type JSONSettings struct {
	// Indent, when non-empty, pretty-prints with the given indent string.
	Indent string

	// EscapeHTML controls escaping of <, >, and & in string values.
	EscapeHTML bool
}

// JSONCodec encodes payloads as JSON. The zero value uses default settings.
type JSONCodec struct {
	Settings JSONSettings
}

// NewJSONCodec creates a JSON codec with explicit settings.
func NewJSONCodec(settings JSONSettings) *JSONCodec {
	return &JSONCodec{Settings: settings}
}

// Encode serializes v according to the codec settings.
func (c *JSONCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(c.Settings.EscapeHTML)
	if c.Settings.Indent != "" {
		enc.SetIndent("", c.Settings.Indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	// Encoder appends a newline that is not part of the canonical form.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Name returns "json".
func (c *JSONCodec) Name() string { return NameJSON }
