package codec

import (
	"reflect"
	"sync"

	"tablekit/internal/dberr"
)

// Registry holds the codecs registered for domain types.
// It is filled while the schema is declared and only read afterwards.
type Registry struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]any
}

// NewRegistry creates an empty codec registry
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[reflect.Type]any)}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register adds c as the codec for T. Codecs implementing Validator are
// checked first; a failed check or a second registration for T is a
// ConfigurationError.
func Register[T any](r *Registry, c Codec[T]) error {
	t := typeOf[T]()
	if c == nil {
		return dberr.Configf(t.String(), "nil codec")
	}
	if v, ok := c.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.codecs[t]; dup {
		return dberr.Configf(t.String(), "codec already registered")
	}
	r.codecs[t] = c
	return nil
}

// Lookup returns the registered codec for T, or its primitive codec.
func Lookup[T any](r *Registry) (Codec[T], error) {
	if r != nil {
		r.mu.RLock()
		c, ok := r.codecs[typeOf[T]()]
		r.mu.RUnlock()
		if ok {
			return c.(Codec[T]), nil
		}
	}
	return Primitive[T]()
}

// Encode converts v to its storage primitive.
func Encode[T any](r *Registry, v T) (any, error) {
	c, err := Lookup[T](r)
	if err != nil {
		return nil, err
	}
	return c.Encode(v)
}

// Decode converts a storage primitive back to T.
func Decode[T any](r *Registry, raw any) (T, error) {
	c, err := Lookup[T](r)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Decode(raw)
}
