package schema

import (
	"errors"
	"fmt"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"
)

// ColumnRef is the untyped view of a column used by query rendering, DDL and
// foreign keys.
type ColumnRef interface {
	Name() string
	// Table is the owning table name; empty until the column is defined.
	Table() string
	Kind() codec.Kind
	IsPrimaryKey() bool
	IsAutoIncrement() bool
	IsUnique() bool
	IsNullable() bool
	// EncodeValue encodes v, which must be of the column's Go type.
	EncodeValue(v any) (any, error)
}

// Option sets a column flag.
type Option func(*flags)

type flags struct {
	primaryKey    bool
	autoIncrement bool
	unique        bool
}

// PrimaryKey marks the column as the table's primary key.
func PrimaryKey() Option { return func(f *flags) { f.primaryKey = true } }

// AutoIncrement lets the backend generate the key on insert.
func AutoIncrement() Option { return func(f *flags) { f.autoIncrement = true } }

// Unique adds a uniqueness constraint.
func Unique() Option { return func(f *flags) { f.unique = true } }

// Column is a typed column. Its codec is resolved from the codec registry when
// the owning table is defined, unless one was given explicitly.
type Column[T any] struct {
	name  string
	table string
	flags flags
	codec codec.Codec[T]
}

// NewColumn declares a column whose codec comes from the registry.
func NewColumn[T any](name string, opts ...Option) *Column[T] {
	c := &Column[T]{name: name}
	for _, opt := range opts {
		opt(&c.flags)
	}
	return c
}

// NewColumnWith declares a column with an explicit codec.
func NewColumnWith[T any](name string, cd codec.Codec[T], opts ...Option) *Column[T] {
	c := NewColumn[T](name, opts...)
	c.codec = cd
	return c
}

func (c *Column[T]) Name() string          { return c.name }
func (c *Column[T]) Table() string         { return c.table }
func (c *Column[T]) IsPrimaryKey() bool    { return c.flags.primaryKey }
func (c *Column[T]) IsAutoIncrement() bool { return c.flags.autoIncrement }
func (c *Column[T]) IsUnique() bool        { return c.flags.unique }
func (c *Column[T]) IsNullable() bool      { return codec.IsNullable(c.codec) }

func (c *Column[T]) Kind() codec.Kind {
	if c.codec == nil {
		return codec.Text
	}
	return c.codec.Kind()
}

func (c *Column[T]) String() string {
	if c.table == "" {
		return c.name
	}
	return c.table + "." + c.name
}

// Encode converts v to its storage primitive.
func (c *Column[T]) Encode(v T) (any, error) {
	if c.codec == nil {
		return nil, dberr.Configf(c.String(), "column used before its table was defined")
	}
	return c.codec.Encode(v)
}

// Decode converts a stored value back to T, naming the column in decode errors.
func (c *Column[T]) Decode(raw any) (T, error) {
	if c.codec == nil {
		var zero T
		return zero, dberr.Configf(c.String(), "column used before its table was defined")
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		var de *dberr.DecodeError
		if errors.As(err, &de) && de.Column == "" {
			de.Column = c.String()
		}
		return v, err
	}
	return v, nil
}

func (c *Column[T]) EncodeValue(v any) (any, error) {
	tv, ok := v.(T)
	if !ok {
		return nil, &dberr.EncodeError{Value: v, Err: fmt.Errorf("column %s does not accept %T", c, v)}
	}
	return c.Encode(tv)
}

// resolve picks the codec and checks it without binding the column.
func (c *Column[T]) resolve(reg *codec.Registry) (codec.Codec[T], error) {
	if c.codec != nil {
		if v, ok := c.codec.(codec.Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return c.codec, nil
	}
	cd, err := codec.Lookup[T](reg)
	if err != nil {
		return nil, dberr.Configf(c.name, "no codec: %v", err)
	}
	return cd, nil
}
