package query

import (
	"tablekit/internal/schema"
)

// Predicate is a boolean condition over table columns.
// Values are encoded through the column codec when the statement is rendered.
type Predicate interface {
	// Columns lists every column the predicate reads.
	Columns() []schema.ColumnRef
	render(w *writer) error
}

type constant bool

// True and False are predicates with a fixed outcome.
const (
	True  constant = true
	False constant = false
)

func (constant) Columns() []schema.ColumnRef { return nil }

func (c constant) render(w *writer) error {
	if c {
		w.str("1 = 1")
	} else {
		w.str("1 = 0")
	}
	return nil
}

type compare struct {
	col   schema.ColumnRef
	op    string
	value any
}

func (p compare) Columns() []schema.ColumnRef { return []schema.ColumnRef{p.col} }

// render writes col op ?. A value that encodes to NULL never reaches the
// backend as "= NULL": the comparison is rendered as always false.
func (p compare) render(w *writer) error {
	raw, err := p.col.EncodeValue(p.value)
	if err != nil {
		return err
	}
	if raw == nil {
		return False.render(w)
	}
	w.col(p.col)
	w.str(" " + p.op + " ")
	w.arg(raw)
	return nil
}

// Eq matches rows where c equals v.
func Eq[T any](c *schema.Column[T], v T) Predicate { return compare{c, "=", v} }

// Ne matches rows where c differs from v.
func Ne[T any](c *schema.Column[T], v T) Predicate { return compare{c, "<>", v} }

// Lt matches rows where c is less than v.
func Lt[T any](c *schema.Column[T], v T) Predicate { return compare{c, "<", v} }

// Le matches rows where c is at most v.
func Le[T any](c *schema.Column[T], v T) Predicate { return compare{c, "<=", v} }

// Gt matches rows where c is greater than v.
func Gt[T any](c *schema.Column[T], v T) Predicate { return compare{c, ">", v} }

// Ge matches rows where c is at least v.
func Ge[T any](c *schema.Column[T], v T) Predicate { return compare{c, ">=", v} }

// Like matches text columns against a SQL LIKE pattern.
func Like(c *schema.Column[string], pattern string) Predicate { return compare{c, "LIKE", pattern} }

// EqOpt compares c with an optional value. An absent value yields False:
// it never degrades into a NULL comparison.
func EqOpt[T any](c *schema.Column[T], v *T) Predicate {
	if v == nil {
		return False
	}
	return Eq(c, *v)
}

type in struct {
	col    schema.ColumnRef
	values []any
}

// In matches rows where c equals any of vs. An empty list matches nothing.
func In[T any](c *schema.Column[T], vs ...T) Predicate {
	if len(vs) == 0 {
		return False
	}
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return in{col: c, values: values}
}

func (p in) Columns() []schema.ColumnRef { return []schema.ColumnRef{p.col} }

func (p in) render(w *writer) error {
	w.col(p.col)
	w.str(" IN (")
	for i, v := range p.values {
		raw, err := p.col.EncodeValue(v)
		if err != nil {
			return err
		}
		if i > 0 {
			w.str(", ")
		}
		w.arg(raw)
	}
	w.str(")")
	return nil
}

type nullCheck struct {
	col schema.ColumnRef
	not bool
}

// IsNull matches rows where c is NULL.
func IsNull(c schema.ColumnRef) Predicate { return nullCheck{col: c} }

// IsNotNull matches rows where c is not NULL.
func IsNotNull(c schema.ColumnRef) Predicate { return nullCheck{col: c, not: true} }

func (p nullCheck) Columns() []schema.ColumnRef { return []schema.ColumnRef{p.col} }

func (p nullCheck) render(w *writer) error {
	w.col(p.col)
	if p.not {
		w.str(" IS NOT NULL")
	} else {
		w.str(" IS NULL")
	}
	return nil
}

type columnsEqual struct {
	a, b schema.ColumnRef
}

// ColumnsEqual matches rows where two columns hold the same value.
func ColumnsEqual(a, b schema.ColumnRef) Predicate { return columnsEqual{a, b} }

func (p columnsEqual) Columns() []schema.ColumnRef { return []schema.ColumnRef{p.a, p.b} }

func (p columnsEqual) render(w *writer) error {
	w.col(p.a)
	w.str(" = ")
	w.col(p.b)
	return nil
}

type junction struct {
	op    string
	preds []Predicate
}

// And is the conjunction of preds; with none it is True.
func And(preds ...Predicate) Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return junction{op: " AND ", preds: preds}
}

// Or is the disjunction of preds; with none it is False.
func Or(preds ...Predicate) Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return junction{op: " OR ", preds: preds}
}

func (p junction) Columns() []schema.ColumnRef {
	var cols []schema.ColumnRef
	for _, sub := range p.preds {
		if sub != nil {
			cols = append(cols, sub.Columns()...)
		}
	}
	return cols
}

func (p junction) render(w *writer) error {
	if len(p.preds) == 0 {
		if p.op == " AND " {
			return True.render(w)
		}
		return False.render(w)
	}
	w.str("(")
	for i, sub := range p.preds {
		if i > 0 {
			w.str(p.op)
		}
		if sub == nil {
			return errNilPredicate
		}
		if err := sub.render(w); err != nil {
			return err
		}
	}
	w.str(")")
	return nil
}

type not struct {
	pred Predicate
}

// Not negates p.
func Not(p Predicate) Predicate { return not{p} }

func (p not) Columns() []schema.ColumnRef {
	if p.pred == nil {
		return nil
	}
	return p.pred.Columns()
}

func (p not) render(w *writer) error {
	if p.pred == nil {
		return errNilPredicate
	}
	w.str("NOT (")
	if err := p.pred.render(w); err != nil {
		return err
	}
	w.str(")")
	return nil
}
