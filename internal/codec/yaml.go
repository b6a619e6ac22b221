package codec

import (
	"bytes"
	"fmt"

	"tablekit/internal/dberr"

	"gopkg.in/yaml.v3"
)

// YAMLCodec stores structured values as YAML text. It suits documents that
// operators read back with plain SQL tooling.
type YAMLCodec[T any] struct{}

// YAML creates a new YAML column codec
func YAML[T any]() YAMLCodec[T] {
	return YAMLCodec[T]{}
}

func (YAMLCodec[T]) Kind() Kind { return Text }

// Encode marshals v to YAML with two-space indentation
func (YAMLCodec[T]) Encode(v T) (any, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return nil, &dberr.EncodeError{Value: v, Err: fmt.Errorf("failed to encode YAML: %w", err)}
	}
	if err := encoder.Close(); err != nil {
		return nil, &dberr.EncodeError{Value: v, Err: fmt.Errorf("failed to encode YAML: %w", err)}
	}
	return buf.String(), nil
}

// Decode parses stored YAML text into T
func (YAMLCodec[T]) Decode(raw any) (T, error) {
	var v T
	s, err := asString(raw)
	if err != nil {
		return v, err
	}
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return v, malformed(raw, "failed to parse YAML: %v", err)
	}
	return v, nil
}
