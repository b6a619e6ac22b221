package schema

import "strings"

// RefAction is the backend-enforced reaction to a change of a referenced row.
type RefAction int

const (
	NoAction RefAction = iota
	Cascade
	Restrict
	SetNull
	SetDefault
)

// SQL renders the action as it appears in ON UPDATE / ON DELETE clauses.
func (a RefAction) SQL() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case Restrict:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	}
	return "NO ACTION"
}

func (a RefAction) String() string {
	return strings.ToLower(strings.ReplaceAll(a.SQL(), " ", "-"))
}

// ForeignKey constrains owning columns to values present in referenced key
// columns. Enforcement is left to the backend.
type ForeignKey struct {
	Name       string
	Columns    []ColumnRef
	References []ColumnRef
	OnUpdate   RefAction
	OnDelete   RefAction
}

// References builds a single-column foreign key. owning and referenced share
// the Go type T, so a key of one entity cannot reference another entity's key.
func References[T any](name string, owning, referenced *Column[T], onUpdate, onDelete RefAction) ForeignKey {
	return ForeignKey{
		Name:       name,
		Columns:    []ColumnRef{owning},
		References: []ColumnRef{referenced},
		OnUpdate:   onUpdate,
		OnDelete:   onDelete,
	}
}

// Table is the owning table name.
func (fk ForeignKey) Table() string {
	if len(fk.Columns) == 0 {
		return ""
	}
	return fk.Columns[0].Table()
}

// ReferencedTable is the referenced table name.
func (fk ForeignKey) ReferencedTable() string {
	if len(fk.References) == 0 {
		return ""
	}
	return fk.References[0].Table()
}

// Pairs returns the (owning, referenced) column pairs.
func (fk ForeignKey) Pairs() [][2]ColumnRef {
	pairs := make([][2]ColumnRef, len(fk.Columns))
	for i := range fk.Columns {
		pairs[i] = [2]ColumnRef{fk.Columns[i], fk.References[i]}
	}
	return pairs
}
