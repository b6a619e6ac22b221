package dialect

import (
	"errors"
	"fmt"
	"strings"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres targets PostgreSQL through the pgx database/sql driver.
type Postgres struct{}

func (Postgres) Name() string             { return "postgres" }
func (Postgres) DriverName() string       { return "pgx" }
func (Postgres) DSN(source string) string { return source }

func (Postgres) Quote(ident string) string { return quoteIdent(ident) }
func (Postgres) Placeholder(n int) string  { return fmt.Sprintf("$%d", n) }

func (Postgres) ColumnType(k codec.Kind) string {
	switch k {
	case codec.Integer:
		return "BIGINT"
	case codec.Real:
		return "DOUBLE PRECISION"
	case codec.Blob:
		return "BYTEA"
	case codec.Boolean:
		return "BOOLEAN"
	case codec.Timestamp:
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

func (Postgres) AutoIncrementKey(codec.Kind) string {
	return "BIGSERIAL PRIMARY KEY"
}

func (Postgres) LimitOffset(limit, offset int) string {
	var parts []string
	if limit >= 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " ")
}

func (p Postgres) Returning(column string) string {
	return " RETURNING " + p.Quote(column)
}

func (Postgres) Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if alreadyClassified(err) {
		return err
	}
	if c := classifyCommon(op, err); c != nil {
		return c
	}
	if pgconn.Timeout(err) {
		return &dberr.ExecutionError{Op: op, Timeout: true, Retryable: true, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return &dberr.ConstraintViolation{Statement: op, Err: err}
		case pgErr.Code == "40001", pgErr.Code == "40P01", strings.HasPrefix(pgErr.Code, "08"):
			return &dberr.ExecutionError{Op: op, Retryable: true, Err: err}
		case pgErr.Code == "57014":
			return &dberr.ExecutionError{Op: op, Timeout: true, Retryable: true, Err: err}
		}
	}
	return unclassified(op, err)
}
