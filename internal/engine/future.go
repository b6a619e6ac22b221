package engine

import (
	"context"
	"errors"
	"sync"

	"tablekit/internal/dberr"
)

// ErrPending is returned by Result before the run has resolved.
var ErrPending = errors.New("run has not resolved yet")

// State is the lifecycle position of a run.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Future is the eventual outcome of a run. Once resolved its outcome never
// changes and can be read any number of times.
type Future[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Pending {
		f.state = Running
	}
}

// resolve records the outcome; later calls are ignored.
func (f *Future[T]) resolve(v T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Succeeded || f.state == Failed {
		return
	}
	if err != nil {
		f.state, f.err = Failed, err
	} else {
		f.state, f.value = Succeeded, v
	}
	close(f.done)
}

// State returns the current lifecycle state.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done is closed once the run has resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the run resolves or ctx ends. Giving up on the wait does
// not stop the run; cancel the context passed to Run for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, &dberr.ExecutionError{Op: "await", Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded), Err: ctx.Err()}
	}
}

// Result returns the outcome, or ErrPending while the run is in flight.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Succeeded:
		return f.value, nil
	case Failed:
		var zero T
		return zero, f.err
	}
	var zero T
	return zero, ErrPending
}
