package query

import (
	"strings"

	"tablekit/internal/dialect"
	"tablekit/internal/schema"
)

// writer accumulates SQL text and bind arguments for one statement
type writer struct {
	d    dialect.Dialect
	b    strings.Builder
	args []any
}

func newWriter(d dialect.Dialect) *writer {
	return &writer{d: d}
}

func (w *writer) str(s string) { w.b.WriteString(s) }

// col writes a table-qualified column reference
func (w *writer) col(c schema.ColumnRef) {
	w.b.WriteString(w.d.Quote(c.Table()))
	w.b.WriteByte('.')
	w.b.WriteString(w.d.Quote(c.Name()))
}

// arg binds v and writes its placeholder
func (w *writer) arg(v any) {
	w.args = append(w.args, v)
	w.b.WriteString(w.d.Placeholder(len(w.args)))
}

func (w *writer) result() (string, []any) {
	return w.b.String(), w.args
}

// where writes the conjunction of preds, if any
func (w *writer) where(preds []Predicate) error {
	if len(preds) == 0 {
		return nil
	}
	w.str(" WHERE ")
	return And(preds...).render(w)
}

func (w *writer) orderBy(o *Ordering) {
	if o == nil {
		return
	}
	w.str(" ORDER BY ")
	w.col(o.Column)
	if o.Direction == Desc {
		w.str(" DESC")
	} else {
		w.str(" ASC")
	}
	switch o.Nulls {
	case NullsFirst:
		w.str(" NULLS FIRST")
	case NullsLast:
		w.str(" NULLS LAST")
	}
}

func (w *writer) window(limit, offset int) {
	if clause := w.d.LimitOffset(limit, offset); clause != "" {
		w.str(" ")
		w.str(clause)
	}
}

// selection is the shared shape of every SELECT this package renders.
type selection struct {
	from   schema.TableRef
	join   *joinClause
	cols   []schema.ColumnRef
	preds  []Predicate
	order  *Ordering
	limit  int
	offset int
}

type joinClause struct {
	table schema.TableRef
	on    []Predicate
}

func (s selection) render(w *writer) error {
	w.str("SELECT ")
	for i, c := range s.cols {
		if i > 0 {
			w.str(", ")
		}
		w.col(c)
	}
	s.renderFrom(w)
	if err := s.renderJoinOn(w); err != nil {
		return err
	}
	if err := w.where(s.preds); err != nil {
		return err
	}
	w.orderBy(s.order)
	w.window(s.limit, s.offset)
	return nil
}

func (s selection) renderFrom(w *writer) {
	w.str(" FROM ")
	w.str(w.d.Quote(s.from.Name()))
	if s.join != nil {
		w.str(" INNER JOIN ")
		w.str(w.d.Quote(s.join.table.Name()))
	}
}

func (s selection) renderJoinOn(w *writer) error {
	if s.join == nil {
		return nil
	}
	w.str(" ON ")
	return And(s.join.on...).render(w)
}

func (s selection) windowed() bool {
	return s.limit >= 0 || s.offset > 0
}

// count renders SELECT COUNT(*) over the selection, honouring its window
func (s selection) count(w *writer) error {
	if !s.windowed() {
		w.str("SELECT COUNT(*)")
		s.renderFrom(w)
		if err := s.renderJoinOn(w); err != nil {
			return err
		}
		return w.where(s.preds)
	}
	w.str("SELECT COUNT(*) FROM (")
	if err := s.render(w); err != nil {
		return err
	}
	w.str(") AS windowed")
	return nil
}

func (s selection) owns(c schema.ColumnRef) bool {
	if s.from.HasColumn(c) {
		return true
	}
	return s.join != nil && s.join.table.HasColumn(c)
}
