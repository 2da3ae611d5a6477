// Package api defines the settlewise RPC surface: message types, procedure
// names, and Connect handler and client constructors. Messages are plain Go
// structs carried by a JSON codec.
package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// CodecName is the codec name negotiated by handlers and clients
// (Content-Type application/json).
const CodecName = "json"

// JSONCodec is a connect.Codec for plain Go structs.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	// An empty body is an empty message.
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
}
