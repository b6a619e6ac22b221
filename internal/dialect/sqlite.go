package dialect

import (
	"errors"
	"fmt"
	"strings"

	"tablekit/internal/codec"
	"tablekit/internal/dberr"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite targets modernc.org/sqlite.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite" }

// DSN enables foreign keys, a busy timeout and WAL on every pooled connection.
// Note that ":memory:" gives each pooled connection its own database.
func (SQLite) DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (SQLite) Quote(ident string) string { return quoteIdent(ident) }
func (SQLite) Placeholder(int) string    { return "?" }

func (SQLite) ColumnType(k codec.Kind) string {
	switch k {
	case codec.Integer:
		return "INTEGER"
	case codec.Real:
		return "REAL"
	case codec.Blob:
		return "BLOB"
	case codec.Boolean:
		return "BOOLEAN"
	case codec.Timestamp:
		return "TIMESTAMP"
	}
	return "TEXT"
}

func (SQLite) AutoIncrementKey(codec.Kind) string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (SQLite) LimitOffset(limit, offset int) string {
	switch {
	case limit < 0 && offset <= 0:
		return ""
	case limit < 0:
		return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
	case offset <= 0:
		return fmt.Sprintf("LIMIT %d", limit)
	}
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

func (SQLite) Returning(string) string { return "" }

func (SQLite) Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if alreadyClassified(err) {
		return err
	}
	if c := classifyCommon(op, err); c != nil {
		return c
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return &dberr.ConstraintViolation{Statement: op, Err: err}
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return &dberr.ExecutionError{Op: op, Retryable: true, Err: err}
		case sqlite3.SQLITE_INTERRUPT:
			return &dberr.ExecutionError{Op: op, Timeout: true, Retryable: true, Err: err}
		}
	}
	return unclassified(op, err)
}
