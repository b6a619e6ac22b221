package query

import (
	"fmt"

	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
	"tablekit/internal/schema"
)

// Assignment is one "column = value" term of an UPDATE.
type Assignment struct {
	col   schema.ColumnRef
	value any
}

// Set assigns v to c.
func Set[T any](c *schema.Column[T], v T) Assignment {
	return Assignment{col: c, value: v}
}

// Column returns the assigned column.
func (a Assignment) Column() schema.ColumnRef { return a.col }

// UpdateSQL renders an UPDATE of the rows q selects.
func (q Query[E]) UpdateSQL(d dialect.Dialect, sets ...Assignment) (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(sets) == 0 {
		return "", nil, &dberr.ValidationError{Reason: "update of " + q.table.Name() + " assigns no columns"}
	}
	cols := make([]schema.ColumnRef, len(sets))
	for i, s := range sets {
		cols[i] = s.col
	}
	if err := checkColumns(q.table.Name(), q.table.HasColumn, cols); err != nil {
		return "", nil, err
	}

	w := newWriter(d)
	w.str("UPDATE ")
	w.str(d.Quote(q.table.Name()))
	w.str(" SET ")
	for i, s := range sets {
		if s.col.IsPrimaryKey() && s.col.IsAutoIncrement() {
			return "", nil, &dberr.ValidationError{Reason: fmt.Sprintf("generated key %s cannot be assigned", s.col.Name())}
		}
		raw, err := s.col.EncodeValue(s.value)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			w.str(", ")
		}
		w.str(d.Quote(s.col.Name()))
		w.str(" = ")
		w.arg(raw)
	}
	if err := q.mutationWhere(w); err != nil {
		return "", nil, err
	}
	s, args := w.result()
	return s, args, nil
}

// DeleteSQL renders a DELETE of the rows q selects.
func (q Query[E]) DeleteSQL(d dialect.Dialect) (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	w := newWriter(d)
	w.str("DELETE FROM ")
	w.str(d.Quote(q.table.Name()))
	if err := q.mutationWhere(w); err != nil {
		return "", nil, err
	}
	s, args := w.result()
	return s, args, nil
}

// mutationWhere restricts an UPDATE or DELETE to the selected rows. A window
// or ordering is applied through a key subquery, since neither backend
// accepts LIMIT on these statements.
func (q Query[E]) mutationWhere(w *writer) error {
	sel := q.selection()
	if !sel.windowed() {
		return w.where(sel.preds)
	}
	pk := q.table.PrimaryKeyColumn()
	sel.cols = []schema.ColumnRef{pk}
	w.str(" WHERE ")
	w.col(pk)
	w.str(" IN (")
	if err := sel.render(w); err != nil {
		return err
	}
	w.str(")")
	return nil
}

// InsertSQL renders an INSERT of e. generated reports that the backend
// assigns the key; with a non-empty Returning clause the statement yields it
// as a single row.
func InsertSQL[E any](d dialect.Dialect, t *schema.Table[E], e E) (stmt string, args []any, generated bool, err error) {
	cols, vals, generated, err := t.InsertColumns(e)
	if err != nil {
		return "", nil, false, err
	}
	w := newWriter(d)
	w.str("INSERT INTO ")
	w.str(d.Quote(t.Name()))
	w.str(" (")
	for i, c := range cols {
		if i > 0 {
			w.str(", ")
		}
		w.str(d.Quote(c.Name()))
	}
	w.str(") VALUES (")
	for i, v := range vals {
		if i > 0 {
			w.str(", ")
		}
		w.arg(v)
	}
	w.str(")")
	if generated {
		w.str(d.Returning(t.PrimaryKeyColumn().Name()))
	}
	stmt, args = w.result()
	return stmt, args, generated, nil
}

// UpdateRowSQL renders an UPDATE writing every non-key column of e to the row
// holding e's key.
func UpdateRowSQL[E any](d dialect.Dialect, t *schema.Table[E], e E) (string, []any, error) {
	row, err := t.ToRow(e)
	if err != nil {
		return "", nil, err
	}
	pk := t.PrimaryKeyColumn()
	w := newWriter(d)
	w.str("UPDATE ")
	w.str(d.Quote(t.Name()))
	w.str(" SET ")

	var key any
	n := 0
	for i, c := range t.Columns() {
		if c == pk {
			key = row[i]
			continue
		}
		if n > 0 {
			w.str(", ")
		}
		w.str(d.Quote(c.Name()))
		w.str(" = ")
		w.arg(row[i])
		n++
	}
	switch {
	case key == nil || key == int64(0) || key == "":
		return "", nil, &dberr.ValidationError{Reason: fmt.Sprintf("update of an unsaved %s row", t.Name())}
	case n == 0:
		return "", nil, &dberr.ValidationError{Reason: fmt.Sprintf("table %s has no columns besides its key", t.Name())}
	}
	w.str(" WHERE ")
	w.col(pk)
	w.str(" = ")
	w.arg(key)
	s, args := w.result()
	return s, args, nil
}
