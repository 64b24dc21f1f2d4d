// Package codec centralizes response encoding and the compression stream
// wrapped around encoded bit vectors.
//
// Response codecs are selected by name ("json", "go-json", "msgpack") so the
// transport can honor a client's requested writer type. The zlib Stream is
// the byte-level transform applied outside the bit vector layout.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
	// ContentType is the MIME type of the encoded form.
	ContentType() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "msgpack":
		return MsgPack{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// Default is the codec used when a request does not name one.
var Default Codec = GoJSON{}
