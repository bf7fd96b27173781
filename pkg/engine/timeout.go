package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrSuperseded is returned to a caller whose evaluation finished after a
	// newer one had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")

	// ErrTimeout is returned when an evaluation outlives its deadline. The
	// sandbox goroutine keeps running; its result is dropped.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrBusy is returned when no sandbox slot frees up before the deadline.
	ErrBusy = errors.New("engine busy: sandbox still running")
)

// evalResult carries one evaluation back to the waiting caller.
type evalResult struct {
	design *Design
	errors []EvalError
	err    error
}

// latest reports whether gen is still the newest evaluation.
func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await blocks until ch delivers, ctx ends or timeout passes.
func (e *Engine) await(ctx context.Context, ch <-chan evalResult, gen uint64, timeout time.Duration) (*Design, []EvalError, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case res := <-ch:
		if !e.latest(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.design, res.errors, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return nil, nil, ctx.Err()
	}
}

// acquire takes slot, giving up when ctx ends.
func acquire(ctx context.Context, slot chan struct{}) error {
	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrBusy
		}
		return ctx.Err()
	}
}

// abandoned reports whether await gave up on a sandbox that is still
// running.
func abandoned(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// abandon replaces old with a fresh slot. The sandbox holding old releases
// it whenever it returns; nobody waits on it any more.
func (e *Engine) abandon(old chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.slot == old {
		e.slot = make(chan struct{}, 1)
	}
}
