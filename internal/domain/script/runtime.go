package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

var (
	// ErrTimeout is returned when a script runs past its time budget.
	ErrTimeout = errors.New("script execution timeout exceeded")
	// ErrClosed is returned by a runtime after Close.
	ErrClosed = errors.New("script runtime closed")
)

// Config bounds script execution.
type Config struct {
	Timeout      time.Duration // Per evaluation or hook call
	MaxCallStack int
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		Timeout:      2 * time.Second,
		MaxCallStack: 1024,
	}
}

// Runtime is one goja VM. Every entry into the VM is serialized.
type Runtime struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	config Config
}

// NewRuntime creates a VM with host-only globals removed.
func NewRuntime(config Config) *Runtime {
	vm := goja.New()
	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = vm.Set(name, goja.Undefined())
	}
	// Scripts have no event loop of their own.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = vm.Set("setTimeout", noop)
	_ = vm.Set("setInterval", noop)

	return &Runtime{vm: vm, config: config}
}

// VM returns the underlying VM for setting up globals before any script
// runs.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Run evaluates source under name.
func (r *Runtime) Run(ctx context.Context, name, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return ErrClosed
	}
	_, err := r.guard(ctx, func() (goja.Value, error) {
		return r.vm.RunScript(name, source)
	})
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", name, err)
	}
	return nil
}

// Function returns the global function name, if the scripts defined one.
func (r *Runtime) Function(name string) (goja.Callable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, false
	}
	return goja.AssertFunction(r.vm.Get(name))
}

// Call invokes fn with Go arguments converted to script values.
func (r *Runtime) Call(ctx context.Context, fn goja.Callable, this goja.Value, args ...any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, ErrClosed
	}
	if this == nil {
		this = goja.Undefined()
	}

	vals := make([]goja.Value, len(args))
	for i, arg := range args {
		vals[i] = r.vm.ToValue(arg)
	}

	v, err := r.guard(ctx, func() (goja.Value, error) {
		return fn(this, vals...)
	})
	if err != nil {
		return nil, err
	}
	return export(v), nil
}

// guard runs fn, interrupting the VM on timeout or cancellation. Callers
// hold r.mu.
func (r *Runtime) guard(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if r.config.Timeout > 0 {
		timer := time.NewTimer(r.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-timeout:
			r.vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	v, err := fn()
	close(stop)
	<-done
	r.vm.ClearInterrupt()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return nil, cause
			}
		}
		return nil, err
	}
	return v, nil
}

// Close releases the VM.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm = nil
	return nil
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
