// Package tasks runs a batch of named units of work concurrently, each
// under its own deadline, and reports their outcomes in submission order.
//
// Resource loading, application initialization and table acquisition all
// share this shape: fan out, let every unit finish or time out, then act
// once on the full set.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDeadline marks a unit that did not finish before its deadline.
var ErrDeadline = errors.New("deadline exceeded")

// Outcome is the result of one unit.
type Outcome[T any] struct {
	Name     string
	Index    int
	Value    T
	Err      error
	Duration time.Duration
}

// OK reports whether the unit succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Tracker collects outcomes for units started with Go.
type Tracker[T any] struct {
	ctx      context.Context
	deadline time.Duration

	mu       sync.Mutex
	outcomes []Outcome[T]
	onDone   func(Outcome[T])
	cbMu     sync.Mutex
	wg       sync.WaitGroup
}

// NewTracker creates a tracker whose units inherit ctx. A positive deadline
// bounds each unit individually.
func NewTracker[T any](ctx context.Context, deadline time.Duration) *Tracker[T] {
	return &Tracker[T]{ctx: ctx, deadline: deadline}
}

// OnDone installs a callback invoked as each unit resolves. Calls are
// serialized. It must be set before the first Go.
func (t *Tracker[T]) OnDone(fn func(Outcome[T])) {
	t.onDone = fn
}

// Go starts fn as a new unit.
func (t *Tracker[T]) Go(name string, fn func(ctx context.Context) (T, error)) {
	t.mu.Lock()
	index := len(t.outcomes)
	t.outcomes = append(t.outcomes, Outcome[T]{Name: name, Index: index})
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		out := t.run(name, index, fn)

		t.mu.Lock()
		t.outcomes[index] = out
		t.mu.Unlock()

		if t.onDone != nil {
			t.cbMu.Lock()
			t.onDone(out)
			t.cbMu.Unlock()
		}
	}()
}

func (t *Tracker[T]) run(name string, index int, fn func(ctx context.Context) (T, error)) Outcome[T] {
	ctx, cancel := t.ctx, context.CancelFunc(func() {})
	if t.deadline > 0 {
		ctx, cancel = context.WithTimeout(t.ctx, t.deadline)
	}
	defer cancel()

	start := time.Now()
	// Buffered: a unit past its deadline still finishes into it and its
	// late result is dropped.
	done := make(chan Outcome[T], 1)
	go func() {
		res := Outcome[T]{Name: name, Index: index}
		defer func() {
			if r := recover(); r != nil {
				var zero T
				res.Value = zero
				res.Err = fmt.Errorf("%s: panic: %v", name, r)
			}
			done <- res
		}()
		res.Value, res.Err = fn(ctx)
	}()

	var out Outcome[T]
	select {
	case out = <-done:
	case <-ctx.Done():
		select {
		case out = <-done:
		default:
			out = Outcome[T]{Name: name, Index: index, Err: ctx.Err()}
		}
	}
	out.Duration = time.Since(start)

	if out.Err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && t.ctx.Err() == nil {
		out.Err = fmt.Errorf("%s: %w after %s: %w", name, ErrDeadline, t.deadline, out.Err)
	}
	return out
}

// Wait blocks until every started unit resolved and returns the outcomes
// in the order the units were started. A unit resolves when fn returns or
// its deadline passes, whichever comes first.
func (t *Tracker[T]) Wait() []Outcome[T] {
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outcome[T], len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

// Failed counts unsuccessful outcomes.
func Failed[T any](outcomes []Outcome[T]) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
