// Package engine runs actions against a pooled SQL backend.
//
// Run is the entry point: it pins one pooled connection for the whole
// action, lets the action open a transaction on it when it was built with
// action.Transactionally, and returns the connection to the pool on every
// exit path. Concurrent runs are bounded by the pool size.
//
// A run whose context is cancelled mid-transaction is rolled back; there is
// no partially committed state.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablekit/internal/action"
	"tablekit/internal/config"
	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
)

// Options tune an Engine built with New.
type Options struct {
	// PoolSize caps open connections; zero leaves the driver default.
	PoolSize int
	// StatementTimeout bounds each backend call; zero means unbounded.
	StatementTimeout time.Duration
	Logger           *zap.SugaredLogger
}

// Engine owns the connection pool.
type Engine struct {
	db      *sql.DB
	dialect dialect.Dialect
	timeout time.Duration
	log     *zap.SugaredLogger

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// Open connects to the backend described by cfg.
func Open(cfg config.DatabaseConfig, d dialect.Dialect, logger *zap.SugaredLogger) (*Engine, error) {
	db, err := sql.Open(d.DriverName(), d.DSN(cfg.Source()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	e := New(db, d, Options{
		PoolSize:         cfg.PoolSize,
		StatementTimeout: cfg.Timeout(),
		Logger:           logger,
	})
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", d.Classify("connect", err))
	}
	e.log.Infow("engine opened", "dialect", d.Name(), "pool", cfg.PoolSize)
	return e, nil
}

// New wraps an open pool.
func New(db *sql.DB, d dialect.Dialect, opts Options) *Engine {
	if opts.PoolSize > 0 {
		db.SetMaxOpenConns(opts.PoolSize)
		db.SetMaxIdleConns(opts.PoolSize)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{db: db, dialect: d, timeout: opts.StatementTimeout, log: log}
}

// Dialect returns the backend dialect.
func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

// Stats reports pool usage.
func (e *Engine) Stats() sql.DBStats { return e.db.Stats() }

// Close waits for in-flight runs and closes the pool. Runs started after
// Close fail.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.inflight.Wait()
	return e.db.Close()
}

// admit registers a run unless the engine is closed.
func (e *Engine) admit() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	e.inflight.Add(1)
	return true
}

var errClosed = errors.New("engine is closed")

// Run starts a in the background and returns its Future.
func Run[T any](ctx context.Context, e *Engine, a action.Action[T]) *Future[T] {
	f := newFuture[T]()
	if !e.admit() {
		var zero T
		f.resolve(zero, &dberr.ExecutionError{Op: a.Name(), Err: errClosed})
		return f
	}
	go func() {
		defer e.inflight.Done()
		f.start()
		f.resolve(execute(ctx, e, a))
	}()
	return f
}

// Exec runs a and waits for its outcome.
func Exec[T any](ctx context.Context, e *Engine, a action.Action[T]) (T, error) {
	if !e.admit() {
		var zero T
		return zero, &dberr.ExecutionError{Op: a.Name(), Err: errClosed}
	}
	defer e.inflight.Done()
	return execute(ctx, e, a)
}

func execute[T any](ctx context.Context, e *Engine, a action.Action[T]) (T, error) {
	var zero T
	log := e.log.With("run", uuid.NewString(), "action", a.Name())
	start := time.Now()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return zero, e.dialect.Classify("acquire connection", err)
	}
	s := action.NewSession(conn, e.dialect, e.timeout, log)
	defer func() {
		if err := s.Close(); err != nil {
			log.Warnw("rollback of abandoned transaction failed", "error", err)
		}
		if err := conn.Close(); err != nil {
			log.Warnw("failed to release connection", "error", err)
		}
	}()

	v, err := a.Run(ctx, s)
	if err != nil {
		log.Debugw("run failed", "elapsed", time.Since(start), "transactional", a.Transactional(), "error", err)
		return zero, err
	}
	log.Debugw("run succeeded", "elapsed", time.Since(start), "transactional", a.Transactional())
	return v, nil
}
