package schema

import (
	"errors"
	"fmt"
	"sync"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"
	"tablekit/internal/dialect"

	"go.uber.org/multierr"
)

// Registry holds the tables and foreign keys of one schema. It is filled once
// at startup and read-only afterwards.
type Registry struct {
	codecs  *codec.Registry
	dialect dialect.Dialect

	mu     sync.RWMutex
	tables map[string]TableRef
	order  []string
	fks    []ForeignKey
}

// NewRegistry creates a schema registry using codecs for column types and d
// for DDL rendering.
func NewRegistry(codecs *codec.Registry, d dialect.Dialect) *Registry {
	if codecs == nil {
		codecs = codec.NewRegistry()
	}
	return &Registry{
		codecs:  codecs,
		dialect: d,
		tables:  make(map[string]TableRef),
	}
}

func (r *Registry) Codecs() *codec.Registry   { return r.codecs }
func (r *Registry) Dialect() dialect.Dialect { return r.dialect }

func (r *Registry) add(t TableRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tables[t.Name()]; dup {
		return dberr.Configf("table "+t.Name(), "table already defined")
	}
	r.tables[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Table looks a table up by name.
func (r *Registry) Table(name string) (TableRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// ForeignKeys returns every declared foreign key.
func (r *Registry) ForeignKeys() []ForeignKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ForeignKey, len(r.fks))
	copy(out, r.fks)
	return out
}

// ForeignKey finds a foreign key by constraint name.
func (r *Registry) ForeignKey(name string) (ForeignKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fk := range r.fks {
		if fk.Name == name {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// AddForeignKey validates and records fk. Owning and referenced columns must
// belong to defined tables, pair up one to one with matching storage kinds,
// and the referenced columns must be the primary key or unique.
func (r *Registry) AddForeignKey(fk ForeignKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs error
	if fk.Name == "" {
		errs = multierr.Append(errs, errors.New("empty constraint name"))
	}
	for _, existing := range r.fks {
		if existing.Name == fk.Name {
			errs = multierr.Append(errs, fmt.Errorf("constraint %q already declared", fk.Name))
		}
	}
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.References) {
		errs = multierr.Append(errs, fmt.Errorf("%d owning columns for %d referenced columns", len(fk.Columns), len(fk.References)))
		return &dberr.ConfigurationError{Subject: "foreign key " + fk.Name, Err: errs}
	}

	errs = multierr.Append(errs, r.checkSide("owning", fk.Columns))
	errs = multierr.Append(errs, r.checkSide("referenced", fk.References))
	for i, c := range fk.Columns {
		ref := fk.References[i]
		if c.Kind() != ref.Kind() {
			errs = multierr.Append(errs, fmt.Errorf("column %s (%s) cannot reference %s (%s)", c.Name(), c.Kind(), ref.Name(), ref.Kind()))
		}
		if !ref.IsPrimaryKey() && !ref.IsUnique() {
			errs = multierr.Append(errs, fmt.Errorf("referenced column %s.%s is neither primary key nor unique", ref.Table(), ref.Name()))
		}
		if (fk.OnDelete == SetNull || fk.OnUpdate == SetNull) && !c.IsNullable() {
			errs = multierr.Append(errs, fmt.Errorf("set-null on non-nullable column %s", c.Name()))
		}
	}
	if errs != nil {
		return &dberr.ConfigurationError{Subject: "foreign key " + fk.Name, Err: errs}
	}

	r.fks = append(r.fks, fk)
	return nil
}

// checkSide requires cols to belong to one defined table.
func (r *Registry) checkSide(side string, cols []ColumnRef) error {
	table := cols[0].Table()
	t, ok := r.tables[table]
	if !ok {
		return fmt.Errorf("%s column %s belongs to no defined table", side, cols[0].Name())
	}
	for _, c := range cols {
		if !t.HasColumn(c) {
			return fmt.Errorf("%s columns span more than table %s", side, table)
		}
	}
	return nil
}

// Tables returns the tables ordered so that every referenced table precedes
// the tables referencing it. Ties keep definition order; cycles fall back to
// definition order.
func (r *Registry) Tables() []TableRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deps := make(map[string]map[string]bool, len(r.order))
	for _, fk := range r.fks {
		owner, target := fk.Table(), fk.ReferencedTable()
		if owner == target {
			continue
		}
		if deps[owner] == nil {
			deps[owner] = make(map[string]bool)
		}
		deps[owner][target] = true
	}

	placed := make(map[string]bool, len(r.order))
	out := make([]TableRef, 0, len(r.order))
	for len(out) < len(r.order) {
		progress := false
		for _, name := range r.order {
			if placed[name] {
				continue
			}
			ready := true
			for dep := range deps[name] {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				placed[name] = true
				out = append(out, r.tables[name])
				progress = true
			}
		}
		if !progress {
			for _, name := range r.order {
				if !placed[name] {
					placed[name] = true
					out = append(out, r.tables[name])
				}
			}
		}
	}
	return out
}
