package codec

import (
	"fmt"
	"reflect"
	"time"

	"tablekit/internal/dberr"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// primitiveCodec stores any bool, integer, float, string or []byte kinded type,
// including named types built on them.
type primitiveCodec[T any] struct {
	typ  reflect.Type
	kind Kind
}

// Primitive returns the codec for a scalar type chosen from its reflect kind.
func Primitive[T any]() (Codec[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t == timeType {
		return any(timeCodec{}).(Codec[T]), nil
	}
	var kind Kind
	switch t.Kind() {
	case reflect.Bool:
		kind = Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		kind = Integer
	case reflect.Float32, reflect.Float64:
		kind = Real
	case reflect.String:
		kind = Text
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return nil, dberr.Configf(t.String(), "no primitive codec for slice type")
		}
		kind = Blob
	default:
		return nil, dberr.Configf(t.String(), "no codec registered and no primitive codec for kind %s", t.Kind())
	}
	return primitiveCodec[T]{typ: t, kind: kind}, nil
}

func (c primitiveCodec[T]) Kind() Kind { return c.kind }

func (c primitiveCodec[T]) Encode(v T) (any, error) {
	rv := reflect.ValueOf(v)
	switch c.kind {
	case Boolean:
		return rv.Bool(), nil
	case Integer:
		return rv.Int(), nil
	case Real:
		return rv.Float(), nil
	case Text:
		return rv.String(), nil
	case Blob:
		// NOT NULL blob columns need a value; nil becomes empty.
		if rv.IsNil() {
			return []byte{}, nil
		}
		return rv.Bytes(), nil
	}
	return nil, &dberr.EncodeError{Value: v, Err: fmt.Errorf("unsupported kind %s", c.kind)}
}

func (c primitiveCodec[T]) Decode(raw any) (T, error) {
	var zero T
	out := reflect.New(c.typ).Elem()
	switch c.kind {
	case Boolean:
		b, err := asBool(raw)
		if err != nil {
			return zero, err
		}
		out.SetBool(b)
	case Integer:
		n, err := asInt64(raw)
		if err != nil {
			return zero, err
		}
		if out.OverflowInt(n) {
			return zero, malformed(raw, "%d overflows %s", n, c.typ)
		}
		out.SetInt(n)
	case Real:
		f, err := asFloat64(raw)
		if err != nil {
			return zero, err
		}
		out.SetFloat(f)
	case Text:
		s, err := asString(raw)
		if err != nil {
			return zero, err
		}
		out.SetString(s)
	case Blob:
		b, err := asBytes(raw)
		if err != nil {
			return zero, err
		}
		out.Set(reflect.ValueOf(b).Convert(c.typ))
	}
	return out.Interface().(T), nil
}

// timeCodec stores time.Time values as UTC timestamps. Decoded values carry
// time.UTC and drop the monotonic reading, so compare them with Equal.
type timeCodec struct{}

func (timeCodec) Kind() Kind { return Timestamp }

func (timeCodec) Encode(v time.Time) (any, error) { return v.UTC(), nil }

func (timeCodec) Decode(raw any) (time.Time, error) {
	t, err := asTime(raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
