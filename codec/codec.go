// Package codec defines the payload serialization contract for Relay.
// The publisher serializes an event payload exactly once per publish call;
// every envelope for that call carries the same canonical encoding.
package codec

// Codec serializes event payloads to their canonical wire form.
type Codec interface {
	// Encode serializes a payload value to bytes.
	Encode(v any) ([]byte, error)

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// Name constants for codec selection.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Get returns a codec by name. Defaults to JSON with default settings.
func Get(name string) Codec {
	switch name {
	case NameMsgpack:
		return &MsgpackCodec{}
	case NameJSON, "":
		return &JSONCodec{}
	default:
		return &JSONCodec{}
	}
}
