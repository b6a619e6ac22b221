package query

import (
	"fmt"

	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
	"tablekit/internal/schema"
)

// Pair holds two values read together.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Projected is a query whose output keeps only some columns. Only the kept
// columns can be filtered or sorted on, and a Projected cannot be used for
// updates or deletes.
type Projected[P any] struct {
	sel    selection
	shape  string
	decode func(row []any) (P, error)
	err    error
}

func project[P any](sel selection, err error, cols []schema.ColumnRef, decode func([]any) (P, error)) Projected[P] {
	names := ""
	for i, c := range cols {
		if i > 0 {
			names += ", "
		}
		names += c.Name()
	}
	shape := fmt.Sprintf("projection (%s) of %s", names, sel.from.Name())
	if err == nil {
		err = checkColumns(sel.from.Name(), sel.owns, cols)
	}
	// predicates and ordering already applied to the full row stay valid
	sel.cols = cols
	return Projected[P]{sel: sel, shape: shape, decode: decode, err: err}
}

// Pluck projects q onto a single column.
func Pluck[E, T any](q Query[E], c *schema.Column[T]) Projected[T] {
	return project(q.selection(), q.err, []schema.ColumnRef{c}, func(row []any) (T, error) {
		return c.Decode(row[0])
	})
}

// Pluck2 projects q onto two columns.
func Pluck2[E, A, B any](q Query[E], a *schema.Column[A], b *schema.Column[B]) Projected[Pair[A, B]] {
	return project(q.selection(), q.err, []schema.ColumnRef{a, b}, func(row []any) (Pair[A, B], error) {
		var p Pair[A, B]
		var err error
		if p.First, err = a.Decode(row[0]); err != nil {
			return p, err
		}
		if p.Second, err = b.Decode(row[1]); err != nil {
			return p, err
		}
		return p, nil
	})
}

// MapProjected transforms each projected value with f.
func MapProjected[P, R any](p Projected[P], f func(P) R) Projected[R] {
	return Projected[R]{
		sel:   p.sel,
		shape: p.shape,
		err:   p.err,
		decode: func(row []any) (R, error) {
			v, err := p.decode(row)
			if err != nil {
				var zero R
				return zero, err
			}
			return f(v), nil
		},
	}
}

func (p Projected[P]) kept(c schema.ColumnRef) bool {
	for _, own := range p.sel.cols {
		if own == c {
			return true
		}
	}
	return false
}

// Filter adds pred. A predicate over a column the projection dropped is a
// ValidationError.
func (p Projected[P]) Filter(pred Predicate) (Projected[P], error) {
	if pred == nil {
		return p, errNilPredicate
	}
	if err := checkColumns(p.shape, p.kept, pred.Columns()); err != nil {
		return p, err
	}
	p.sel.preds = appendPred(p.sel.preds, pred)
	return p, nil
}

// SortBy orders by a kept column, replacing any earlier ordering.
func (p Projected[P]) SortBy(c schema.ColumnRef, dir Direction, nulls Nulls) (Projected[P], error) {
	if err := checkColumns(p.shape, p.kept, []schema.ColumnRef{c}); err != nil {
		return p, err
	}
	p.sel.order = &Ordering{Column: c, Direction: dir, Nulls: nulls}
	return p, nil
}

// Take caps the number of rows returned.
func (p Projected[P]) Take(n int) Projected[P] {
	p.sel.limit = max(n, 0)
	return p
}

// Drop skips the first n rows.
func (p Projected[P]) Drop(n int) Projected[P] {
	p.sel.offset = max(n, 0)
	return p
}

// Err returns the error recorded while projecting.
func (p Projected[P]) Err() error { return p.err }

// Width is the number of columns in each row.
func (p Projected[P]) Width() int { return len(p.sel.cols) }

// Decode converts one row of Width values.
func (p Projected[P]) Decode(row []any) (P, error) {
	if len(row) != len(p.sel.cols) {
		var zero P
		return zero, &dberr.DecodeError{Kind: dberr.Malformed, Raw: row, Err: fmt.Errorf("%s has %d columns, row has %d", p.shape, len(p.sel.cols), len(row))}
	}
	return p.decode(row)
}

// SelectSQL renders the projection.
func (p Projected[P]) SelectSQL(d dialect.Dialect) (string, []any, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	w := newWriter(d)
	if err := p.sel.render(w); err != nil {
		return "", nil, err
	}
	s, args := w.result()
	return s, args, nil
}
