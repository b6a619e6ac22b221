package schema

import (
	"fmt"
	"strings"

	"tablekit/internal/dberr"
)

// CreateStatements renders one CREATE TABLE per table in dependency order.
// Columns, types and constraints come straight from the descriptors; no
// column beyond the declared ones is added.
func (r *Registry) CreateStatements() ([]string, error) {
	if r.dialect == nil {
		return nil, dberr.Configf("schema", "no dialect configured")
	}
	fks := r.ForeignKeys()
	tables := r.Tables()
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, r.createTable(t, fks))
	}
	return out, nil
}

// DropStatements renders DROP TABLE statements in reverse dependency order.
func (r *Registry) DropStatements() ([]string, error) {
	if r.dialect == nil {
		return nil, dberr.Configf("schema", "no dialect configured")
	}
	tables := r.Tables()
	out := make([]string, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		out = append(out, "DROP TABLE IF EXISTS "+r.dialect.Quote(tables[i].Name()))
	}
	return out, nil
}

func (r *Registry) createTable(t TableRef, fks []ForeignKey) string {
	d := r.dialect
	var defs []string
	for _, c := range t.Columns() {
		var b strings.Builder
		b.WriteString(d.Quote(c.Name()))
		b.WriteByte(' ')
		switch {
		case c.IsPrimaryKey() && c.IsAutoIncrement():
			b.WriteString(d.AutoIncrementKey(c.Kind()))
		case c.IsPrimaryKey():
			b.WriteString(d.ColumnType(c.Kind()))
			b.WriteString(" NOT NULL PRIMARY KEY")
		default:
			b.WriteString(d.ColumnType(c.Kind()))
			if !c.IsNullable() {
				b.WriteString(" NOT NULL")
			}
			if c.IsUnique() {
				b.WriteString(" UNIQUE")
			}
		}
		defs = append(defs, b.String())
	}

	for _, fk := range fks {
		if fk.Table() != t.Name() {
			continue
		}
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
			d.Quote(fk.Name),
			r.quoteNames(fk.Columns),
			d.Quote(fk.ReferencedTable()),
			r.quoteNames(fk.References),
			fk.OnUpdate.SQL(),
			fk.OnDelete.SQL(),
		))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.Quote(t.Name()), strings.Join(defs, ",\n\t"))
}

func (r *Registry) quoteNames(cols []ColumnRef) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = r.dialect.Quote(c.Name())
	}
	return strings.Join(names, ", ")
}
