package client

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a [Token].
type State int32

const (
	// Active is the initial state: no cancellation has been requested.
	Active State = iota
	// InterruptRequested means the caller asked for cancellation and the
	// transfer has not yet honored it.
	InterruptRequested
	// Terminated is final: the transfer either finished or was aborted.
	Terminated
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case InterruptRequested:
		return "interrupt_requested"
	default:
		return "terminated"
	}
}

// Token is a cooperative, single-use cancellation handle for one transfer.
//
// The caller moves it from Active to InterruptRequested with Cancel; only
// the transfer moves it to Terminated. The interrupt callback runs at most
// once, and only when an in-flight transfer is actually aborted.
type Token struct {
	state     atomic.Int32
	done      chan struct{}
	requested chan struct{}

	mu          sync.Mutex
	onInterrupt func(*Request)
	abort       context.CancelFunc
	claimed     bool
}

// NewToken returns an Active token.
func NewToken() *Token {
	return &Token{
		done:      make(chan struct{}),
		requested: make(chan struct{}),
	}
}

// OnInterrupt registers fn to run when the transfer is aborted by Cancel.
// It receives the request being aborted. Only the last registration is kept.
func (t *Token) OnInterrupt(fn func(*Request)) *Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onInterrupt = fn
	return t
}

// Cancel requests an interrupt. It is a no-op once the token is Terminated
// or when an interrupt is already pending.
func (t *Token) Cancel() {
	if !t.state.CompareAndSwap(int32(Active), int32(InterruptRequested)) {
		return
	}
	close(t.requested)

	t.mu.Lock()
	abort := t.abort
	t.mu.Unlock()

	if abort != nil {
		abort()
	}
}

// State returns the current state.
func (t *Token) State() State {
	return State(t.state.Load())
}

// Done is closed when the token reaches Terminated.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Requested is closed once Cancel has been called.
func (t *Token) Requested() <-chan struct{} {
	return t.requested
}

// Discard terminates a token whose execution never started, such as work
// dropped from a queue. A pending interrupt fires the callback with req.
// It reports false when the token was already claimed by an execution.
func (t *Token) Discard(req *Request) bool {
	if !t.claim() {
		return false
	}
	t.interrupted(req)
	t.finish()

	return true
}

// claim reserves the token for one execution. It reports false when the
// token already served or is serving another execution.
func (t *Token) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.claimed || t.State() == Terminated {
		return false
	}
	t.claimed = true

	return true
}

// bind attaches the abort function of one transfer attempt. It reports
// false when the token is Terminated or another attempt holds it.
func (t *Token) bind(abort context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.abort != nil || t.State() == Terminated {
		return false
	}
	t.abort = abort

	return true
}

// unbind releases the token after an attempt so a retry can bind it.
func (t *Token) unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.abort = nil
}

// interrupted is the engine's checkpoint. When an interrupt is pending it
// terminates the token, fires the callback once and reports true.
func (t *Token) interrupted(req *Request) bool {
	if t == nil {
		return false
	}
	if !t.state.CompareAndSwap(int32(InterruptRequested), int32(Terminated)) {
		return false
	}

	t.mu.Lock()
	fn := t.onInterrupt
	t.mu.Unlock()

	close(t.done)
	if fn != nil {
		fn(req)
	}

	return true
}

// finish terminates the token once an execution returns, without firing
// the callback, even if Cancel raced in after the last chunk.
func (t *Token) finish() {
	if t == nil {
		return
	}
	for {
		s := t.state.Load()
		if State(s) == Terminated {
			return
		}
		if t.state.CompareAndSwap(s, int32(Terminated)) {
			close(t.done)
			return
		}
	}
}
