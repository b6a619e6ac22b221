package action

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
)

// runner is satisfied by both *sql.Conn and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Session is what an Action runs against: one pinned pooled connection, the
// transaction open on it (if any) and the backend dialect. A Session belongs
// to a single run and is never shared between goroutines.
type Session struct {
	conn    *sql.Conn
	tx      *sql.Tx
	dialect dialect.Dialect
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewSession wraps a pinned connection. timeout bounds every backend call;
// zero leaves calls bounded only by the run context.
func NewSession(conn *sql.Conn, d dialect.Dialect, timeout time.Duration, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{conn: conn, dialect: d, timeout: timeout, log: log}
}

// Dialect returns the backend dialect.
func (s *Session) Dialect() dialect.Dialect { return s.dialect }

// InTransaction reports whether a transaction is open on the connection.
func (s *Session) InTransaction() bool { return s != nil && s.tx != nil }

func (s *Session) logger() *zap.SugaredLogger {
	if s == nil || s.log == nil {
		return zap.NewNop().Sugar()
	}
	return s.log
}

func (s *Session) classify(op string, err error) error {
	if s == nil || s.dialect == nil {
		return &dberr.ExecutionError{Op: op, Err: err}
	}
	return s.dialect.Classify(op, err)
}

func (s *Session) runner() (runner, error) {
	switch {
	case s == nil || s.conn == nil:
		return nil, &dberr.ExecutionError{Op: "session", Err: errors.New("no connection")}
	case s.tx != nil:
		return s.tx, nil
	}
	return s.conn, nil
}

func (s *Session) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// exec runs a statement that returns no rows.
func (s *Session) exec(ctx context.Context, op, stmt string, args []any) (sql.Result, error) {
	r, err := s.runner()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	s.log.Debugw("exec", "op", op, "sql", stmt, "args", len(args))
	res, err := r.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, s.classify(op, err)
	}
	return res, nil
}

// query runs stmt and hands each row of width raw values to each. An error
// from each stops the scan and is returned unchanged.
func (s *Session) query(ctx context.Context, op, stmt string, args []any, width int, each func(row []any) error) error {
	r, err := s.runner()
	if err != nil {
		return err
	}
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	s.log.Debugw("query", "op", op, "sql", stmt, "args", len(args))
	rows, err := r.QueryContext(ctx, stmt, args...)
	if err != nil {
		return s.classify(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		row := make([]any, width)
		dest := make([]any, width)
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return s.classify(op, err)
		}
		if err := each(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return s.classify(op, err)
	}
	return nil
}

func (s *Session) begin(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return &dberr.ExecutionError{Op: "begin", Err: errors.New("no connection")}
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return s.classify("begin", err)
	}
	s.tx = tx
	s.log.Debug("transaction started")
	return nil
}

func (s *Session) commit() error {
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return s.classify("commit", err)
	}
	s.log.Debug("transaction committed")
	return nil
}

// rollback discards the open transaction. A transaction already closed by a
// cancelled context is not an error.
func (s *Session) rollback() error {
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return s.classify("rollback", err)
	}
	s.log.Debug("transaction rolled back")
	return nil
}

// Close rolls back a transaction left open by an interrupted run. The
// connection itself is owned and released by the caller.
func (s *Session) Close() error {
	if !s.InTransaction() {
		return nil
	}
	return s.rollback()
}
