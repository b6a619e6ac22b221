package query

import (
	"fmt"

	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
	"tablekit/internal/schema"
)

// Joined is an inner join of two tables along a foreign key. Each result row
// yields one entity of each side.
type Joined[A, B any] struct {
	left  *schema.Table[A]
	right *schema.Table[B]
	sel   selection
	err   error
}

// Join pairs rows of left and right related by fk. The key may point in
// either direction between the two tables. Self-joins are not supported.
func Join[A, B any](fk schema.ForeignKey, left *schema.Table[A], right *schema.Table[B]) Joined[A, B] {
	j := Joined[A, B]{left: left, right: right}
	j.sel = selection{
		from:  left,
		cols:  append(left.Columns(), right.Columns()...),
		limit: -1,
	}
	j.err = checkJoin(fk, left, right)
	if j.err != nil {
		return j
	}
	on := make([]Predicate, 0, len(fk.Columns))
	for _, p := range fk.Pairs() {
		on = append(on, ColumnsEqual(p[0], p[1]))
	}
	j.sel.join = &joinClause{table: right, on: on}
	return j
}

func checkJoin(fk schema.ForeignKey, left, right schema.TableRef) error {
	if left.Name() == right.Name() {
		return &dberr.ValidationError{Reason: fmt.Sprintf("self-join of %s is not supported", left.Name())}
	}
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.References) {
		return &dberr.ValidationError{Reason: fmt.Sprintf("foreign key %q has no column pairs", fk.Name)}
	}
	owner, target := fk.Table(), fk.ReferencedTable()
	if !(owner == left.Name() && target == right.Name()) && !(owner == right.Name() && target == left.Name()) {
		return &dberr.ValidationError{Reason: fmt.Sprintf("foreign key %q does not relate %s and %s", fk.Name, left.Name(), right.Name())}
	}
	return nil
}

// Left and Right return the joined tables.
func (j Joined[A, B]) Left() *schema.Table[A]  { return j.left }
func (j Joined[A, B]) Right() *schema.Table[B] { return j.right }

// Err returns the error recorded while composing the join.
func (j Joined[A, B]) Err() error { return j.err }

// Filter adds a predicate over columns of either table.
func (j Joined[A, B]) Filter(p Predicate) Joined[A, B] {
	if p == nil {
		if j.err == nil {
			j.err = errNilPredicate
		}
		return j
	}
	if j.err == nil {
		j.err = checkColumns("join of "+j.left.Name()+" and "+j.right.Name(), j.sel.owns, p.Columns())
	}
	j.sel.preds = appendPred(j.sel.preds, p)
	return j
}

// SortBy orders by a column of either table, replacing any earlier ordering.
func (j Joined[A, B]) SortBy(c schema.ColumnRef, dir Direction, nulls Nulls) Joined[A, B] {
	if j.err == nil {
		j.err = checkColumns("join of "+j.left.Name()+" and "+j.right.Name(), j.sel.owns, []schema.ColumnRef{c})
	}
	j.sel.order = &Ordering{Column: c, Direction: dir, Nulls: nulls}
	return j
}

// Take caps the number of pairs returned.
func (j Joined[A, B]) Take(n int) Joined[A, B] {
	j.sel.limit = max(n, 0)
	return j
}

// Drop skips the first n pairs.
func (j Joined[A, B]) Drop(n int) Joined[A, B] {
	j.sel.offset = max(n, 0)
	return j
}

// Width is the number of columns in each joined row.
func (j Joined[A, B]) Width() int { return len(j.sel.cols) }

// Decode splits one joined row into its two entities.
func (j Joined[A, B]) Decode(row []any) (Pair[A, B], error) {
	var p Pair[A, B]
	if len(row) != len(j.sel.cols) {
		return p, &dberr.DecodeError{Kind: dberr.Malformed, Raw: row, Err: fmt.Errorf("join has %d columns, row has %d", len(j.sel.cols), len(row))}
	}
	n := len(j.left.Columns())
	var err error
	if p.First, err = j.left.FromRow(row[:n]); err != nil {
		return p, err
	}
	if p.Second, err = j.right.FromRow(row[n:]); err != nil {
		return p, err
	}
	return p, nil
}

// SelectSQL renders the join.
func (j Joined[A, B]) SelectSQL(d dialect.Dialect) (string, []any, error) {
	if j.err != nil {
		return "", nil, j.err
	}
	w := newWriter(d)
	if err := j.sel.render(w); err != nil {
		return "", nil, err
	}
	s, args := w.result()
	return s, args, nil
}
