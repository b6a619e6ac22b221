package codec

import (
	"encoding/json"
	"fmt"

	"tablekit/internal/dberr"
)

// JSONCodec stores structured values as JSON text
type JSONCodec[T any] struct{}

// JSON creates a new JSON column codec
func JSON[T any]() JSONCodec[T] {
	return JSONCodec[T]{}
}

func (JSONCodec[T]) Kind() Kind { return Text }

// Encode marshals v to a JSON string
func (JSONCodec[T]) Encode(v T) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &dberr.EncodeError{Value: v, Err: fmt.Errorf("failed to encode JSON: %w", err)}
	}
	return string(data), nil
}

// Decode unmarshals stored JSON text into T
func (JSONCodec[T]) Decode(raw any) (T, error) {
	var v T
	s, err := asString(raw)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, malformed(raw, "failed to parse JSON: %v", err)
	}
	return v, nil
}
