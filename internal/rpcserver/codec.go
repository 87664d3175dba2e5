package rpcserver

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec implements connect.Codec over plain encoding/json rather
// than protobuf reflection.
//
// The teacher's BFD service is generated from a .proto file with
// connectrpc.com/connect's bundled protobuf/protojson codecs, which
// require every message type to implement proto.Message (produced by
// protoc-gen-go's descriptor-reflection machinery). That machinery is
// mechanical output of running buf/protoc against a .proto schema --
// tooling this exercise cannot invoke. connect.Codec is an explicit
// extension point for exactly this situation: any type satisfying
// Marshal/Unmarshal/Name works with connect's generic handler and
// client constructors, protobuf or not. The request/response shapes in
// types.go are plain structs tagged for encoding/json instead.
type jsonCodec struct{}

const codecName = "json"

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ClientOptions returns the connect.ClientOption needed for a generic
// connect.NewClient to speak the same plain-JSON codec New's handlers
// register server-side. Named "json" deliberately: it replaces connect's
// built-in protojson-backed "json" codec, which would otherwise reject
// these non-proto.Message request/response structs.
func ClientOptions() []connect.ClientOption {
	return []connect.ClientOption{connect.WithCodec(jsonCodec{})}
}
