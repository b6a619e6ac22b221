// Package codec maps domain values to storage primitives and back.
//
// A Codec[T] converts a Go value of type T into one of the primitive forms a
// database/sql driver accepts (int64, float64, string, []byte, bool,
// time.Time or nil) and decodes the driver's form back into T. Every codec
// obeys the round-trip law Decode(Encode(x)) == x for the values it accepts,
// with two normalisations in the primitive codecs: a nil []byte is stored as
// an empty blob and decodes as an empty non-nil slice, and a time.Time is
// stored in UTC, so it comes back equal under time.Time.Equal but with
// time.UTC as its location.
//
// Codecs are collected in a Registry keyed by Go type. Types without a
// registered codec fall back to a primitive codec chosen from their kind, so
// plain scalars and newtypes such as schema.PK need no registration.
package codec

// Kind is the storage class of a column.
type Kind int

const (
	Integer Kind = iota
	Real
	Text
	Blob
	Boolean
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Text:
		return "text"
	case Blob:
		return "blob"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	}
	return "unknown"
}

// Codec converts between T and a storage primitive.
type Codec[T any] interface {
	Kind() Kind
	Encode(v T) (any, error)
	Decode(raw any) (T, error)
}

// Validator is implemented by codecs that can check their own declaration.
// The registry calls Validate when the codec is registered.
type Validator interface {
	Validate() error
}

// nullable is implemented by codecs that map a missing value to SQL NULL.
type nullable interface {
	Nullable() bool
}

// IsNullable reports whether c stores absent values as NULL.
func IsNullable(c any) bool {
	n, ok := c.(nullable)
	return ok && n.Nullable()
}
