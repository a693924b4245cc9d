package events

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodePayload serializes fields as a protobuf google.protobuf.Struct.
// Values must be JSON-like: string, bool, numbers, nil, []any, map[string]any.
func EncodePayload(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}
	b, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return b, nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(body []byte) (*structpb.Struct, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &s, nil
}

// StringField returns a string field of s or "" when absent.
func StringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}
