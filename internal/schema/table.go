package schema

import (
	"errors"
	"fmt"
	"reflect"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"

	"go.uber.org/multierr"
)

// Binding ties a column to the entity field it projects.
type Binding[E any] interface {
	Column() ColumnRef
	encode(e *E) (any, error)
	decode(e *E, raw any) error
	field(e *E) (uintptr, error)
	resolve(reg *codec.Registry) error
	bindTo(table string)
	bound() bool
}

type binding[E, T any] struct {
	col      *Column[T]
	at       func(*E) *T
	resolved codec.Codec[T]
}

// Bind projects col onto the field returned by at.
func Bind[E, T any](col *Column[T], at func(*E) *T) Binding[E] {
	return &binding[E, T]{col: col, at: at}
}

func (b *binding[E, T]) Column() ColumnRef { return b.col }

func (b *binding[E, T]) encode(e *E) (any, error) {
	return b.col.Encode(*b.at(e))
}

func (b *binding[E, T]) decode(e *E, raw any) error {
	v, err := b.col.Decode(raw)
	if err != nil {
		return err
	}
	*b.at(e) = v
	return nil
}

// field returns the address at projects to, recovering accessor panics.
func (b *binding[E, T]) field(e *E) (addr uintptr, err error) {
	if b.at == nil {
		return 0, fmt.Errorf("column %s has no field accessor", b.col.name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("column %s accessor panicked: %v", b.col.name, r)
		}
	}()
	p := b.at(e)
	if p == nil {
		return 0, fmt.Errorf("column %s accessor returned nil", b.col.name)
	}
	return reflect.ValueOf(p).Pointer(), nil
}

func (b *binding[E, T]) resolve(reg *codec.Registry) error {
	cd, err := b.col.resolve(reg)
	if err != nil {
		return err
	}
	b.resolved = cd
	return nil
}

func (b *binding[E, T]) bindTo(table string) {
	b.col.table = table
	b.col.codec = b.resolved
}

func (b *binding[E, T]) bound() bool { return b.col.table != "" }

// TableRef is the untyped view of a table held by the registry.
type TableRef interface {
	Name() string
	Columns() []ColumnRef
	PrimaryKeyColumn() ColumnRef
	Column(name string) (ColumnRef, bool)
	HasColumn(c ColumnRef) bool
}

// Table describes one physical table and its projection onto entity E.
type Table[E any] struct {
	name     string
	bindings []Binding[E]
	columns  []ColumnRef
	pk       int
}

// Define validates and registers a table for E. The bindings fix the column
// order and form the projection between rows and entities.
//
// All problems are collected and returned together as a ConfigurationError;
// on failure no column is bound and nothing is registered.
func Define[E any](r *Registry, name string, bindings ...Binding[E]) (*Table[E], error) {
	var errs error
	subject := "table " + name
	if name == "" {
		errs = multierr.Append(errs, errors.New("empty table name"))
	}
	if len(bindings) == 0 {
		errs = multierr.Append(errs, errors.New("no columns"))
	}

	t := &Table[E]{name: name, bindings: bindings, pk: -1}
	probe := new(E)
	lo := reflect.ValueOf(probe).Pointer()
	hi := lo + reflect.TypeOf(probe).Elem().Size()
	names := make(map[string]bool, len(bindings))
	fields := make(map[uintptr]string, len(bindings))

	for i, b := range bindings {
		if b == nil {
			errs = multierr.Append(errs, fmt.Errorf("binding %d is nil", i))
			continue
		}
		col := b.Column()
		if col.Name() == "" {
			errs = multierr.Append(errs, fmt.Errorf("column %d has no name", i))
		}
		if names[col.Name()] {
			errs = multierr.Append(errs, fmt.Errorf("column %q declared twice", col.Name()))
		}
		names[col.Name()] = true

		if b.bound() {
			errs = multierr.Append(errs, fmt.Errorf("column %q already belongs to table %q", col.Name(), col.Table()))
		}
		if col.IsPrimaryKey() {
			if t.pk >= 0 {
				errs = multierr.Append(errs, fmt.Errorf("second primary key column %q", col.Name()))
			}
			t.pk = i
		} else if col.IsAutoIncrement() {
			errs = multierr.Append(errs, fmt.Errorf("auto-increment column %q is not the primary key", col.Name()))
		}

		addr, err := b.field(probe)
		switch {
		case err != nil:
			errs = multierr.Append(errs, err)
		case addr < lo || addr >= hi:
			errs = multierr.Append(errs, fmt.Errorf("column %q does not project onto a field of %T", col.Name(), *probe))
		case fields[addr] != "":
			errs = multierr.Append(errs, fmt.Errorf("columns %q and %q project onto the same field", fields[addr], col.Name()))
		default:
			fields[addr] = col.Name()
		}

		if err := b.resolve(r.codecs); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("column %q: %v", col.Name(), err))
		}
	}
	if t.pk < 0 && len(bindings) > 0 {
		errs = multierr.Append(errs, errors.New("no primary key column"))
	}
	if errs != nil {
		return nil, &dberr.ConfigurationError{Subject: subject, Err: errs}
	}

	if err := r.add(t); err != nil {
		return nil, err
	}
	t.columns = make([]ColumnRef, len(bindings))
	for i, b := range bindings {
		b.bindTo(name)
		t.columns[i] = b.Column()
	}
	return t, nil
}

// MustDefine is Define for package-level declarations; it panics on error.
func MustDefine[E any](r *Registry, name string, bindings ...Binding[E]) *Table[E] {
	t, err := Define(r, name, bindings...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table[E]) Name() string { return t.name }

// Columns returns the columns in declaration order.
func (t *Table[E]) Columns() []ColumnRef {
	out := make([]ColumnRef, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table[E]) PrimaryKeyColumn() ColumnRef { return t.columns[t.pk] }

// Column finds a column by name.
func (t *Table[E]) Column(name string) (ColumnRef, bool) {
	for _, c := range t.columns {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// HasColumn reports whether c belongs to this table.
func (t *Table[E]) HasColumn(c ColumnRef) bool {
	for _, own := range t.columns {
		if own == c {
			return true
		}
	}
	return false
}

// ToRow encodes e into storage values in column order.
func (t *Table[E]) ToRow(e E) ([]any, error) {
	row := make([]any, len(t.bindings))
	for i, b := range t.bindings {
		v, err := b.encode(&e)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", t.name, b.Column().Name(), err)
		}
		row[i] = v
	}
	return row, nil
}

// FromRow decodes storage values in column order into a new entity.
func (t *Table[E]) FromRow(row []any) (E, error) {
	var e E
	if len(row) != len(t.bindings) {
		return e, &dberr.DecodeError{
			Kind: dberr.Malformed,
			Raw:  row,
			Err:  fmt.Errorf("table %s has %d columns, row has %d", t.name, len(t.bindings), len(row)),
		}
	}
	for i, b := range t.bindings {
		if err := b.decode(&e, row[i]); err != nil {
			var zero E
			return zero, err
		}
	}
	return e, nil
}

// Key returns the encoded primary key of e.
func (t *Table[E]) Key(e E) (any, error) {
	return t.bindings[t.pk].encode(&e)
}

// WithKey returns a copy of e carrying the generated key id. The original
// value is left untouched.
func (t *Table[E]) WithKey(e E, id int64) (E, error) {
	out := e
	if err := t.bindings[t.pk].decode(&out, id); err != nil {
		return e, err
	}
	return out, nil
}

// InsertColumns returns the columns written by an insert of e: every column
// except a generated primary key that is still unsaved.
func (t *Table[E]) InsertColumns(e E) ([]ColumnRef, []any, bool, error) {
	row, err := t.ToRow(e)
	if err != nil {
		return nil, nil, false, err
	}
	pk := t.columns[t.pk]
	generate := pk.IsAutoIncrement() && isZeroKey(row[t.pk])

	cols := make([]ColumnRef, 0, len(row))
	vals := make([]any, 0, len(row))
	for i, c := range t.columns {
		if generate && i == t.pk {
			continue
		}
		cols = append(cols, c)
		vals = append(vals, row[i])
	}
	return cols, vals, generate, nil
}

func isZeroKey(v any) bool {
	switch k := v.(type) {
	case nil:
		return true
	case int64:
		return k == 0
	case string:
		return k == ""
	}
	return false
}
