// Package query builds immutable descriptions of reads and row selections
// over schema tables and renders them to SQL for a dialect.
//
// Every method on Query returns a new value; a Query can be stored, shared
// between goroutines and extended in different directions without the
// extensions seeing each other:
//
//	adults := query.From(users).Filter(query.Ge(age, 18))
//	bobs := adults.Filter(query.Eq(first, "Bob"))
//	page := adults.SortBy(last, query.Asc, query.NullsLast).Drop(20).Take(10)
//
// Unless SortBy is used the row order, and therefore the window picked by
// Take and Drop, is whatever the backend returns.
package query

import (
	"fmt"

	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
	"tablekit/internal/schema"
)

// Direction is the sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Nulls places NULLs in an ordering.
type Nulls int

const (
	NullsDefault Nulls = iota
	NullsFirst
	NullsLast
)

// Ordering is a single ORDER BY term.
type Ordering struct {
	Column    schema.ColumnRef
	Direction Direction
	Nulls     Nulls
}

// Query selects rows of table E.
type Query[E any] struct {
	table  *schema.Table[E]
	preds  []Predicate
	order  *Ordering
	limit  int
	offset int
	err    error
}

// From selects every row of t.
func From[E any](t *schema.Table[E]) Query[E] {
	return Query[E]{table: t, limit: -1}
}

// Table returns the queried table.
func (q Query[E]) Table() *schema.Table[E] { return q.table }

// Err returns the first structural error recorded while composing q, such
// as a nil predicate or a column of another table. It is set by the call
// that caused it, so callers can check it right after Filter or SortBy;
// rendering and running q return the same error.
func (q Query[E]) Err() error { return q.err }

// Predicates returns a copy of the conjunctive filter list.
func (q Query[E]) Predicates() []Predicate { return appendPred(nil, q.preds...) }

// Limit returns the row cap, or -1 when unbounded.
func (q Query[E]) Limit() int { return q.limit }

// Offset returns the number of leading rows skipped.
func (q Query[E]) Offset() int { return q.offset }

// Ordering returns the current ordering, if any.
func (q Query[E]) Ordering() (Ordering, bool) {
	if q.order == nil {
		return Ordering{}, false
	}
	return *q.order, true
}

// Filter adds p to the conjunction. A nil predicate or one over a column of
// another table is recorded as a ValidationError, see Err.
func (q Query[E]) Filter(p Predicate) Query[E] {
	if p == nil {
		if q.err == nil {
			q.err = errNilPredicate
		}
		return q
	}
	if q.err == nil {
		q.err = checkColumns(q.table.Name(), q.table.HasColumn, p.Columns())
	}
	q.preds = appendPred(q.preds, p)
	return q
}

// FilterIf adds p only when cond holds.
func (q Query[E]) FilterIf(cond bool, p Predicate) Query[E] {
	if !cond {
		return q
	}
	return q.Filter(p)
}

// FilterOpt adds the predicate built from *v, or returns q unchanged when v is nil.
func FilterOpt[E, V any](q Query[E], v *V, build func(V) Predicate) Query[E] {
	if v == nil {
		return q
	}
	return q.Filter(build(*v))
}

// SortBy orders the result by c, replacing any earlier ordering.
func (q Query[E]) SortBy(c schema.ColumnRef, dir Direction, nulls Nulls) Query[E] {
	if q.err == nil {
		q.err = checkColumns(q.table.Name(), q.table.HasColumn, []schema.ColumnRef{c})
	}
	q.order = &Ordering{Column: c, Direction: dir, Nulls: nulls}
	return q
}

// Take caps the number of rows returned; the latest call wins.
func (q Query[E]) Take(n int) Query[E] {
	if n < 0 {
		n = 0
	}
	q.limit = n
	return q
}

// Drop skips the first n rows; the latest call wins. Offset and limit are
// tracked separately, so Drop(5).Take(5) and Take(5).Drop(5) are the same window.
func (q Query[E]) Drop(n int) Query[E] {
	if n < 0 {
		n = 0
	}
	q.offset = n
	return q
}

func (q Query[E]) selection() selection {
	return selection{
		from:   q.table,
		cols:   q.table.Columns(),
		preds:  q.preds,
		order:  q.order,
		limit:  q.limit,
		offset: q.offset,
	}
}

// SelectSQL renders the query as a SELECT of every column.
func (q Query[E]) SelectSQL(d dialect.Dialect) (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	w := newWriter(d)
	if err := q.selection().render(w); err != nil {
		return "", nil, err
	}
	s, args := w.result()
	return s, args, nil
}

// CountSQL renders a row count of the query.
func (q Query[E]) CountSQL(d dialect.Dialect) (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	w := newWriter(d)
	if err := q.selection().count(w); err != nil {
		return "", nil, err
	}
	s, args := w.result()
	return s, args, nil
}

func appendPred(preds []Predicate, more ...Predicate) []Predicate {
	out := make([]Predicate, 0, len(preds)+len(more))
	out = append(out, preds...)
	return append(out, more...)
}

var errNilPredicate = &dberr.ValidationError{Reason: "nil predicate"}

func checkColumns(shape string, owns func(schema.ColumnRef) bool, cols []schema.ColumnRef) error {
	for _, c := range cols {
		if !owns(c) {
			return &dberr.ValidationError{Reason: fmt.Sprintf("column %s.%s is not part of %s", c.Table(), c.Name(), shape)}
		}
	}
	return nil
}
