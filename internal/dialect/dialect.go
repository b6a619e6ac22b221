// Package dialect describes the backend capabilities the schema registry and
// the execution engine need: identifier quoting, placeholders, column types,
// key generation and error classification.
//
// A Dialect is injected at construction. Nothing else in tablekit branches on
// the backend in use.
package dialect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"
)

// Dialect is the backend capability consumed by the schema and engine layers.
type Dialect interface {
	// Name identifies the dialect in configuration and logs.
	Name() string
	// DriverName is the database/sql driver the dialect registers.
	DriverName() string
	// DSN turns a configured source into a driver connection string.
	DSN(source string) string

	Quote(ident string) string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder(n int) string
	ColumnType(k codec.Kind) string
	// AutoIncrementKey renders the full column type of a generated primary key.
	AutoIncrementKey(k codec.Kind) string
	// LimitOffset renders the row window; limit < 0 means unbounded.
	LimitOffset(limit, offset int) string
	// Returning renders the INSERT suffix that yields the generated key, or ""
	// when the driver reports it through sql.Result.LastInsertId.
	Returning(column string) string

	// Classify maps a backend error onto the dberr taxonomy.
	Classify(op string, err error) error
}

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	}
	return nil, dberr.Configf("dialect", "unknown dialect %q", name)
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// classifyCommon handles the errors every driver reports the same way.
// It returns nil when err needs dialect-specific inspection.
func classifyCommon(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &dberr.ExecutionError{Op: op, Timeout: true, Retryable: true, Err: err}
	case errors.Is(err, context.Canceled):
		return &dberr.ExecutionError{Op: op, Err: err}
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return &dberr.ExecutionError{Op: op, Retryable: true, Err: err}
	}
	return nil
}

// alreadyClassified reports whether err already carries a dberr class.
func alreadyClassified(err error) bool {
	for _, sentinel := range []error{
		dberr.ErrConfiguration, dberr.ErrDecode, dberr.ErrEncode,
		dberr.ErrConstraint, dberr.ErrExecution, dberr.ErrValidation,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func unclassified(op string, err error) error {
	return &dberr.ExecutionError{Op: op, Err: fmt.Errorf("backend: %w", err)}
}
