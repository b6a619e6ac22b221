// Package action is a small algebra of composable storage operations.
//
// An Action is a description: building one touches nothing, and every Run
// executes it afresh against a Session. Actions compose with Map, FlatMap,
// AndThen, Zip, Sequence and Fold; failures can be inspected with AsTry and
// observed with CleanUp and AndFinally.
//
// # Transactions
//
// Composition never implies atomicity. Sequence(a, b) runs a and b as two
// independent statements on the same connection; if b fails, a's effects
// stay. Wrap the composite in Transactionally to commit all of it or none
// of it:
//
//	both := action.Transactionally(action.AndThen(insertA, insertB))
//
// A Transactionally nested inside a running transaction joins it.
package action

import (
	"context"
	"fmt"
	"time"

	"tablekit/internal/dberr"
	"tablekit/internal/query"
)

// Unit is the result of actions run for their effect.
type Unit = struct{}

// Action describes a storage operation producing T.
type Action[T any] struct {
	name          string
	transactional bool
	run           func(ctx context.Context, s *Session) (T, error)
}

// Name is the label used in logs and errors.
func (a Action[T]) Name() string {
	if a.name == "" {
		return "action"
	}
	return a.name
}

// Transactional reports whether a was built with Transactionally.
func (a Action[T]) Transactional() bool { return a.transactional }

// Run executes a on s. A cancelled ctx fails the action before it starts, and
// a panic raised while running is returned as an ExecutionError.
func (a Action[T]) Run(ctx context.Context, s *Session) (v T, err error) {
	if a.run == nil {
		return v, &dberr.ValidationError{Reason: "run of an empty action"}
	}
	if err := ctx.Err(); err != nil {
		return v, s.classify(a.Name(), err)
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, &dberr.ExecutionError{Op: a.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return a.run(ctx, s)
}

// Successful always yields v.
func Successful[T any](v T) Action[T] {
	return Action[T]{name: "successful", run: func(context.Context, *Session) (T, error) {
		return v, nil
	}}
}

// Failed always fails with err.
func Failed[T any](err error) Action[T] {
	return Action[T]{name: "failed", run: func(context.Context, *Session) (T, error) {
		var zero T
		return zero, err
	}}
}

// Done is the Action that does nothing.
func Done() Action[Unit] { return Successful(Unit{}) }

// Func builds an Action from a custom step.
func Func[T any](name string, f func(ctx context.Context, s *Session) (T, error)) Action[T] {
	return Action[T]{name: name, run: f}
}

// Named relabels a and logs each run of it.
func Named[T any](name string, a Action[T]) Action[T] {
	return Action[T]{name: name, transactional: a.transactional, run: func(ctx context.Context, s *Session) (T, error) {
		start := time.Now()
		v, err := a.Run(ctx, s)
		log := s.logger().With("action", name, "elapsed", time.Since(start))
		if err != nil {
			log.Debugw("action failed", "error", err)
		} else {
			log.Debug("action succeeded")
		}
		return v, err
	}}
}

// Map transforms the result of a.
func Map[T, R any](a Action[T], f func(T) R) Action[R] {
	return Action[R]{name: a.name, transactional: a.transactional, run: func(ctx context.Context, s *Session) (R, error) {
		v, err := a.Run(ctx, s)
		if err != nil {
			var zero R
			return zero, err
		}
		return f(v), nil
	}}
}

// FlatMap runs a, then the action f builds from its result. f is not called
// when a fails.
func FlatMap[T, R any](a Action[T], f func(T) Action[R]) Action[R] {
	return Action[R]{name: a.name, run: func(ctx context.Context, s *Session) (R, error) {
		v, err := a.Run(ctx, s)
		if err != nil {
			var zero R
			return zero, err
		}
		return f(v).Run(ctx, s)
	}}
}

// AndThen runs a, discards its result, then runs b.
func AndThen[T, R any](a Action[T], b Action[R]) Action[R] {
	return FlatMap(a, func(T) Action[R] { return b })
}

// Zip runs a then b and pairs their results. Both share the session's
// connection, so they never overlap.
func Zip[A, B any](a Action[A], b Action[B]) Action[query.Pair[A, B]] {
	return Action[query.Pair[A, B]]{name: "zip", run: func(ctx context.Context, s *Session) (query.Pair[A, B], error) {
		var p query.Pair[A, B]
		var err error
		if p.First, err = a.Run(ctx, s); err != nil {
			return query.Pair[A, B]{}, err
		}
		if p.Second, err = b.Run(ctx, s); err != nil {
			return query.Pair[A, B]{}, err
		}
		return p, nil
	}}
}

// Sequence runs as in order and collects their results. The first failure
// stops the sequence; later actions do not run.
func Sequence[T any](as ...Action[T]) Action[[]T] {
	return Action[[]T]{name: "sequence", run: func(ctx context.Context, s *Session) ([]T, error) {
		out := make([]T, 0, len(as))
		for _, a := range as {
			v, err := a.Run(ctx, s)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}}
}

// Fold left-folds the results of as into zero with combine.
func Fold[T, R any](as []Action[T], zero R, combine func(R, T) R) Action[R] {
	return Action[R]{name: "fold", run: func(ctx context.Context, s *Session) (R, error) {
		acc := zero
		for _, a := range as {
			v, err := a.Run(ctx, s)
			if err != nil {
				var none R
				return none, err
			}
			acc = combine(acc, v)
		}
		return acc, nil
	}}
}

// Try is the outcome of an action as data.
type Try[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the action succeeded.
func (t Try[T]) Ok() bool { return t.Err == nil }

// AsTry turns a failure of a into a successful Try carrying the error.
func AsTry[T any](a Action[T]) Action[Try[T]] {
	return Action[Try[T]]{name: a.name, run: func(ctx context.Context, s *Session) (Try[T], error) {
		v, err := a.Run(ctx, s)
		return Try[T]{Value: v, Err: err}, nil
	}}
}

// CleanUp runs the action built by handler after a resolves, passing a's
// error (nil on success). The result is a's outcome. A handler failure only
// surfaces when a succeeded. The handler runs even when the run context has
// been cancelled.
func CleanUp[T any](a Action[T], handler func(error) Action[Unit]) Action[T] {
	return Action[T]{name: a.name, transactional: a.transactional, run: func(ctx context.Context, s *Session) (T, error) {
		v, err := a.Run(ctx, s)
		cleanup := Func("cleanup", func(ctx context.Context, s *Session) (Unit, error) {
			return handler(err).Run(ctx, s)
		})
		_, herr := cleanup.Run(context.WithoutCancel(ctx), s)
		switch {
		case err != nil:
			if herr != nil {
				s.logger().Warnw("cleanup failed after action failure", "action", a.Name(), "error", herr)
			}
			return v, err
		case herr != nil:
			var zero T
			return zero, herr
		}
		return v, nil
	}}
}

// AndFinally runs final after a regardless of a's outcome.
func AndFinally[T any](a Action[T], final Action[Unit]) Action[T] {
	return CleanUp(a, func(error) Action[Unit] { return final })
}

// Transactionally runs a inside a transaction: every effect of a commits
// together, or none does. Inside an open transaction a simply joins it.
func Transactionally[T any](a Action[T]) Action[T] {
	return Action[T]{name: a.name, transactional: true, run: func(ctx context.Context, s *Session) (T, error) {
		var zero T
		if s.InTransaction() {
			return a.Run(ctx, s)
		}
		if err := s.begin(ctx); err != nil {
			return zero, err
		}
		v, err := a.Run(ctx, s)
		if err != nil {
			if rbErr := s.rollback(); rbErr != nil {
				s.logger().Warnw("rollback failed", "action", a.Name(), "error", rbErr)
			}
			return zero, err
		}
		if err := s.commit(); err != nil {
			return zero, err
		}
		return v, nil
	}}
}

// Retry reruns a while it fails with an error retryable accepts, up to
// attempts runs in total. A nil retryable uses dberr.IsRetryable. Inside a
// transaction a failure is returned at once: the transaction is already
// spoiled.
func Retry[T any](a Action[T], attempts int, retryable func(error) bool) Action[T] {
	if attempts < 1 {
		attempts = 1
	}
	if retryable == nil {
		retryable = dberr.IsRetryable
	}
	return Action[T]{name: a.name, transactional: a.transactional, run: func(ctx context.Context, s *Session) (T, error) {
		for attempt := 1; ; attempt++ {
			v, err := a.Run(ctx, s)
			if err == nil || attempt >= attempts || s.InTransaction() || !retryable(err) {
				return v, err
			}
			s.logger().Debugw("retrying action", "action", a.Name(), "attempt", attempt+1, "error", err)
		}
	}}
}
