package codec

import (
	"bytes"
	"errors"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablekit/internal/dberr"
)

type userID int64

type color string

const (
	red   color = "red"
	green color = "green"
	blue  color = "blue"
)

func colorEnum() *Enum[color] {
	return NewEnum(map[color]string{red: "R", green: "G", blue: "B"}, red, green, blue)
}

// roundTrip checks Decode(Encode(x)) == x for generated values of T
func roundTrip[T comparable](t *testing.T, c Codec[T]) {
	t.Helper()
	prop := func(x T) bool {
		raw, err := c.Encode(x)
		if err != nil {
			return false
		}
		got, err := c.Decode(raw)
		return err == nil && got == x
	}
	require.NoError(t, quick.Check(prop, nil))
}

func primitive[T any](t *testing.T) Codec[T] {
	t.Helper()
	c, err := Primitive[T]()
	require.NoError(t, err)
	return c
}

func TestPrimitiveRoundTrip(t *testing.T) {
	t.Run("int64", func(t *testing.T) { roundTrip(t, primitive[int64](t)) })
	t.Run("int32", func(t *testing.T) { roundTrip(t, primitive[int32](t)) })
	t.Run("int", func(t *testing.T) { roundTrip(t, primitive[int](t)) })
	t.Run("newtype", func(t *testing.T) { roundTrip(t, primitive[userID](t)) })
	t.Run("string", func(t *testing.T) { roundTrip(t, primitive[string](t)) })
	t.Run("float64", func(t *testing.T) { roundTrip(t, primitive[float64](t)) })
	t.Run("bool", func(t *testing.T) { roundTrip(t, primitive[bool](t)) })
}

func TestPrimitiveBytesRoundTrip(t *testing.T) {
	c := primitive[[]byte](t)
	prop := func(x []byte) bool {
		raw, err := c.Encode(x)
		if err != nil {
			return false
		}
		got, err := c.Decode(raw)
		return err == nil && bytes.Equal(got, x)
	}
	require.NoError(t, quick.Check(prop, nil))
}

func TestNormalisedRoundTrips(t *testing.T) {
	t.Run("nil blob decodes empty", func(t *testing.T) {
		c := primitive[[]byte](t)
		raw, err := c.Encode(nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{}, raw)

		got, err := c.Decode(raw)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("time comes back in UTC", func(t *testing.T) {
		c := primitive[time.Time](t)
		zone := time.FixedZone("UTC+2", 2*60*60)
		local := time.Date(2024, 3, 9, 16, 30, 5, 0, zone)

		raw, err := c.Encode(local)
		require.NoError(t, err)
		got, err := c.Decode(raw)
		require.NoError(t, err)

		assert.True(t, local.Equal(got))
		assert.Equal(t, time.UTC, got.Location())
		assert.Equal(t, 14, got.Hour())
		assert.NotEqual(t, local, got)
	})
}

func TestTimeRoundTrip(t *testing.T) {
	c := primitive[time.Time](t)
	assert.Equal(t, Timestamp, c.Kind())

	now := time.Date(2024, 3, 9, 14, 30, 5, 123456789, time.UTC)
	raw, err := c.Encode(now)
	require.NoError(t, err)
	got, err := c.Decode(raw)
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	got, err = c.Decode("2024-03-09 14:30:05.123456789+00:00")
	require.NoError(t, err)
	assert.True(t, now.Equal(got))
}

func TestPrimitiveDecodesDriverForms(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int64
	}{
		{"int64", int64(7), 7},
		{"int32", int32(7), 7},
		{"text", "7", 7},
		{"bytes", []byte("7"), 7},
	}

	c := primitive[int64](t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrimitiveMalformed(t *testing.T) {
	c := primitive[int8](t)

	_, err := c.Decode("abc")
	require.Error(t, err)
	var de *dberr.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, dberr.Malformed, de.Kind)

	_, err = c.Decode(int64(1000))
	assert.ErrorIs(t, err, dberr.ErrDecode, "overflow must be a decode error")
}

func TestPrimitiveUnsupportedKind(t *testing.T) {
	_, err := Primitive[map[string]int]()
	assert.ErrorIs(t, err, dberr.ErrConfiguration)

	_, err = Primitive[[]int]()
	assert.ErrorIs(t, err, dberr.ErrConfiguration)
}

func TestEnumRoundTripAllVariants(t *testing.T) {
	e := colorEnum()
	require.NoError(t, e.Validate())

	for _, v := range e.Variants() {
		raw, err := e.Encode(v)
		require.NoError(t, err)
		got, err := e.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEnumUnknownTag(t *testing.T) {
	_, err := colorEnum().Decode("X")
	require.Error(t, err)

	var de *dberr.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, dberr.UnknownVariant, de.Kind)
}

func TestEnumEncodeUndeclared(t *testing.T) {
	_, err := colorEnum().Encode(color("purple"))
	assert.ErrorIs(t, err, dberr.ErrEncode)
}

func TestEnumValidate(t *testing.T) {
	tests := []struct {
		name string
		enum *Enum[color]
	}{
		{"missing tag", NewEnum(map[color]string{red: "R", green: "G"}, red, green, blue)},
		{"empty tag", NewEnum(map[color]string{red: "R", green: ""}, red, green)},
		{"shared tag", NewEnum(map[color]string{red: "R", green: "R"}, red, green)},
		{"undeclared variant", NewEnum(map[color]string{red: "R", green: "G"}, red)},
		{"duplicate variant", NewEnum(map[color]string{red: "R"}, red, red)},
		{"no variants", NewEnum[color](nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.enum.Validate(), dberr.ErrConfiguration)
		})
	}
}

func TestRegistryRejectsIncompleteEnum(t *testing.T) {
	r := NewRegistry()
	err := Register[color](r, NewEnum(map[color]string{red: "R"}, red, green))
	require.ErrorIs(t, err, dberr.ErrConfiguration)

	// nothing was registered, so lookup falls back to the text primitive
	c, err := Lookup[color](r)
	require.NoError(t, err)
	raw, err := c.Encode(green)
	require.NoError(t, err)
	assert.Equal(t, "green", raw)
}

func TestRegistryLookupRegistered(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, Register[color](r, colorEnum()))

	raw, err := Encode(r, blue)
	require.NoError(t, err)
	assert.Equal(t, "B", raw)

	got, err := Decode[color](r, "G")
	require.NoError(t, err)
	assert.Equal(t, green, got)

	err = Register[color](r, colorEnum())
	assert.ErrorIs(t, err, dberr.ErrConfiguration, "second registration")
}

func TestNullable(t *testing.T) {
	c := Nullable(primitive[string](t))
	assert.True(t, IsNullable(c))
	assert.False(t, IsNullable(primitive[string](t)))

	raw, err := c.Encode(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	got, err := c.Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := "hello"
	raw, err = c.Encode(&s)
	require.NoError(t, err)
	got, err = c.Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s, *got)
}

type profile struct {
	Nick string   `json:"nick" yaml:"nick"`
	Tags []string `json:"tags" yaml:"tags"`
}

func TestStructuredCodecs(t *testing.T) {
	in := profile{Nick: "bob", Tags: []string{"a", "b"}}

	codecs := map[string]Codec[profile]{
		"json": JSON[profile](),
		"yaml": YAML[profile](),
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Text, c.Kind())
			raw, err := c.Encode(in)
			require.NoError(t, err)
			got, err := c.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, in, got)

			_, err = c.Decode(int64(3))
			assert.ErrorIs(t, err, dberr.ErrDecode)
		})
	}
}
