package async

import (
	"context"
	"sync"

	"github.com/adamwoolhether/fetch/result"
)

// Value is a single-assignment observable holding the outcome of one call.
// Every observer receives the same result exactly once, whether it
// subscribed before or after completion.
type Value[T any] struct {
	dispatcher Dispatcher
	done       chan struct{}

	mu        sync.Mutex
	set       bool
	res       result.Result[T]
	observers []func(result.Result[T])
}

func newValue[T any](d Dispatcher) *Value[T] {
	return &Value[T]{dispatcher: d, done: make(chan struct{})}
}

// Observe registers fn. When the value is already set, fn is delivered
// through the call's dispatcher right away.
func (v *Value[T]) Observe(fn func(result.Result[T])) {
	if fn == nil {
		return
	}

	v.mu.Lock()
	if !v.set {
		v.observers = append(v.observers, fn)
		v.mu.Unlock()
		return
	}
	res := v.res
	v.mu.Unlock()

	v.dispatcher.Dispatch(func() { fn(res) })
}

// Get returns the result and whether it is set.
func (v *Value[T]) Get() (result.Result[T], bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.res, v.set
}

// Wait blocks until the value is set or ctx ends.
func (v *Value[T]) Wait(ctx context.Context) (result.Result[T], error) {
	select {
	case <-v.done:
		res, _ := v.Get()
		return res, nil
	case <-ctx.Done():
		var zero result.Result[T]
		return zero, ctx.Err()
	}
}

// Done is closed once the value is set.
func (v *Value[T]) Done() <-chan struct{} {
	return v.done
}

// resolve stores res and notifies the pending observers in registration
// order. It runs inside the dispatcher.
func (v *Value[T]) resolve(res result.Result[T]) {
	v.mu.Lock()
	if v.set {
		v.mu.Unlock()
		return
	}
	v.set, v.res = true, res
	observers := v.observers
	v.observers = nil
	v.mu.Unlock()

	close(v.done)
	for _, fn := range observers {
		fn(res)
	}
}
