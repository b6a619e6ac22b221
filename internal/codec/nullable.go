package codec

// nullableCodec maps a nil pointer to SQL NULL and delegates everything else.
type nullableCodec[T any] struct {
	inner Codec[T]
}

// Nullable wraps inner so that *T columns accept NULL.
func Nullable[T any](inner Codec[T]) Codec[*T] {
	return nullableCodec[T]{inner: inner}
}

func (c nullableCodec[T]) Kind() Kind     { return c.inner.Kind() }
func (c nullableCodec[T]) Nullable() bool { return true }

func (c nullableCodec[T]) Validate() error {
	if v, ok := c.inner.(Validator); ok {
		return v.Validate()
	}
	return nil
}

func (c nullableCodec[T]) Encode(v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return c.inner.Encode(*v)
}

func (c nullableCodec[T]) Decode(raw any) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := c.inner.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
