package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets connect carry the plain Go request and response types of
// this package. It replaces connect's protobuf JSON codec under the same
// name, so clients send application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON is the codec option every handler and client of this package needs.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
