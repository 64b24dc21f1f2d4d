package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack is a MessagePack codec backed by github.com/vmihailenco/msgpack/v5.
//
// Struct fields are named by their `json` tags so both wire forms carry the
// same keys.
type MsgPack struct{}

// Marshal encodes the value to MessagePack.
func (MsgPack) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes the MessagePack data into v.
func (MsgPack) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// Name returns the unique name of the codec ("msgpack").
func (MsgPack) Name() string { return "msgpack" }

// ContentType returns "application/msgpack".
func (MsgPack) ContentType() string { return "application/msgpack" }
