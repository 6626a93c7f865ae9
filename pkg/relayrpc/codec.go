package relayrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// ContentSubtype is the gRPC content-subtype the ingress service speaks.
const ContentSubtype = "json"

// jsonCodec marshals request and response structs as JSON on the wire.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return ContentSubtype }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
