package mt5gen

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is registered as a gRPC content subtype (the channel negotiates
// "application/grpc+json" instead of the default "application/grpc+proto").
// There is no .proto source for MT5Service in this tree, so the messages in
// this package are plain structs rather than generated protobuf types; a
// JSON codec lets them travel over a real gRPC channel without one.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
