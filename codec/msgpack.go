package codec

import "github.com/vmihailenco/msgpack/v5"

// MsgpackCodec encodes payloads as MessagePack. Useful when subscriber
// endpoints negotiate a binary payload format.
type MsgpackCodec struct{}

// Encode serializes v as MessagePack.
func (c *MsgpackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Name returns "msgpack".
func (c *MsgpackCodec) Name() string { return NameMsgpack }
