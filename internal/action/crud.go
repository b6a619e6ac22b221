package action

import (
	"context"
	"errors"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"
	"tablekit/internal/query"
	"tablekit/internal/schema"
)

// ============================================================================
// Writes
// ============================================================================

// Insert stores e and yields a copy carrying its generated key. e itself is
// never modified.
func Insert[E any](t *schema.Table[E], e E) Action[E] {
	op := "insert into " + t.Name()
	return Func(op, func(ctx context.Context, s *Session) (E, error) {
		var zero E
		stmt, args, generated, err := query.InsertSQL(s.Dialect(), t, e)
		if err != nil {
			return zero, err
		}
		if !generated {
			if _, err := s.exec(ctx, op, stmt, args); err != nil {
				return zero, err
			}
			return e, nil
		}

		var id int64
		if s.Dialect().Returning(t.PrimaryKeyColumn().Name()) != "" {
			err = s.query(ctx, op, stmt, args, 1, func(row []any) (err error) {
				id, err = scalarInt(row[0])
				return err
			})
		} else {
			res, execErr := s.exec(ctx, op, stmt, args)
			if execErr != nil {
				return zero, execErr
			}
			if id, err = res.LastInsertId(); err != nil {
				err = s.classify(op, err)
			}
		}
		if err != nil {
			return zero, err
		}
		if id == 0 {
			return zero, &dberr.ExecutionError{Op: op, Err: errors.New("backend returned no key")}
		}
		return t.WithKey(e, id)
	})
}

// InsertAll inserts es in order and yields the stored copies.
func InsertAll[E any](t *schema.Table[E], es ...E) Action[[]E] {
	as := make([]Action[E], len(es))
	for i, e := range es {
		as[i] = Insert(t, e)
	}
	return Named("insert all into "+t.Name(), Sequence(as...))
}

// Update assigns sets on every row q selects and yields the affected row count.
func Update[E any](q query.Query[E], sets ...query.Assignment) Action[int64] {
	op := "update " + tableName(q)
	return Func(op, func(ctx context.Context, s *Session) (int64, error) {
		stmt, args, err := q.UpdateSQL(s.Dialect(), sets...)
		if err != nil {
			return 0, err
		}
		return s.affected(ctx, op, stmt, args)
	})
}

// UpdateEntity writes every column of e to the row holding e's key.
func UpdateEntity[E any](t *schema.Table[E], e E) Action[int64] {
	op := "update " + t.Name()
	return Func(op, func(ctx context.Context, s *Session) (int64, error) {
		stmt, args, err := query.UpdateRowSQL(s.Dialect(), t, e)
		if err != nil {
			return 0, err
		}
		return s.affected(ctx, op, stmt, args)
	})
}

// Delete removes every row q selects and yields the affected row count.
func Delete[E any](q query.Query[E]) Action[int64] {
	op := "delete from " + tableName(q)
	return Func(op, func(ctx context.Context, s *Session) (int64, error) {
		stmt, args, err := q.DeleteSQL(s.Dialect())
		if err != nil {
			return 0, err
		}
		return s.affected(ctx, op, stmt, args)
	})
}

func (s *Session) affected(ctx context.Context, op, stmt string, args []any) (int64, error) {
	res, err := s.exec(ctx, op, stmt, args)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.classify(op, err)
	}
	return n, nil
}

// ============================================================================
// Reads
// ============================================================================

// Read yields every entity q selects.
func Read[E any](q query.Query[E]) Action[[]E] {
	op := "read " + tableName(q)
	return Func(op, func(ctx context.Context, s *Session) ([]E, error) {
		stmt, args, err := q.SelectSQL(s.Dialect())
		if err != nil {
			return nil, err
		}
		t := q.Table()
		out := []E{}
		err = s.query(ctx, op, stmt, args, len(t.Columns()), func(row []any) error {
			e, err := t.FromRow(row)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// First yields the first entity q selects, or nil when there is none.
func First[E any](q query.Query[E]) Action[*E] {
	return Map(Read(q.Take(1)), func(es []E) *E {
		if len(es) == 0 {
			return nil
		}
		return &es[0]
	})
}

// Count yields the number of rows q selects, honouring its window.
func Count[E any](q query.Query[E]) Action[int64] {
	op := "count " + tableName(q)
	return Func(op, func(ctx context.Context, s *Session) (int64, error) {
		stmt, args, err := q.CountSQL(s.Dialect())
		if err != nil {
			return 0, err
		}
		var n int64
		err = s.query(ctx, op, stmt, args, 1, func(row []any) (err error) {
			n, err = scalarInt(row[0])
			return err
		})
		return n, err
	})
}

// ReadProjected yields the projected values of every selected row.
func ReadProjected[P any](p query.Projected[P]) Action[[]P] {
	return Func("read projection", func(ctx context.Context, s *Session) ([]P, error) {
		stmt, args, err := p.SelectSQL(s.Dialect())
		if err != nil {
			return nil, err
		}
		out := []P{}
		err = s.query(ctx, "read projection", stmt, args, p.Width(), func(row []any) error {
			v, err := p.Decode(row)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ReadJoined yields the entity pairs of an inner join.
func ReadJoined[A, B any](j query.Joined[A, B]) Action[[]query.Pair[A, B]] {
	op := "read join"
	if j.Left() != nil && j.Right() != nil {
		op = "read " + j.Left().Name() + " join " + j.Right().Name()
	}
	return Func(op, func(ctx context.Context, s *Session) ([]query.Pair[A, B], error) {
		stmt, args, err := j.SelectSQL(s.Dialect())
		if err != nil {
			return nil, err
		}
		out := []query.Pair[A, B]{}
		err = s.query(ctx, op, stmt, args, j.Width(), func(row []any) error {
			p, err := j.Decode(row)
			if err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ============================================================================
// Schema
// ============================================================================

// CreateSchema creates every table of reg that does not exist yet, referenced
// tables first.
func CreateSchema(reg *schema.Registry) Action[Unit] {
	return Func("create schema", func(ctx context.Context, s *Session) (Unit, error) {
		stmts, err := reg.CreateStatements()
		if err != nil {
			return Unit{}, err
		}
		return Unit{}, s.execAll(ctx, "create schema", stmts)
	})
}

// DropSchema drops every table of reg, referencing tables first.
func DropSchema(reg *schema.Registry) Action[Unit] {
	return Func("drop schema", func(ctx context.Context, s *Session) (Unit, error) {
		stmts, err := reg.DropStatements()
		if err != nil {
			return Unit{}, err
		}
		return Unit{}, s.execAll(ctx, "drop schema", stmts)
	})
}

func (s *Session) execAll(ctx context.Context, op string, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.exec(ctx, op, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func tableName[E any](q query.Query[E]) string {
	if q.Table() == nil {
		return "<no table>"
	}
	return q.Table().Name()
}

var int64Codec, _ = codec.Primitive[int64]()

// scalarInt decodes a key or count returned by the backend.
func scalarInt(raw any) (int64, error) {
	return int64Codec.Decode(raw)
}
