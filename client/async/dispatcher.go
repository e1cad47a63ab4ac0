package async

import "sync"

// Dispatcher decides where a completed result is delivered.
type Dispatcher interface {
	Dispatch(fn func())
}

type inline struct{}

func (inline) Dispatch(fn func()) { fn() }

// Inline delivers on the worker goroutine that ran the request.
var Inline Dispatcher = inline{}

// Loop delivers on a single goroutine, one function at a time, in the
// order they were dispatched.
type Loop struct {
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending []func()
	closed  bool
}

// NewLoop starts a Loop. buffer sizes the initial queue; the queue grows as
// needed so Dispatch never blocks, including when called from a delivery.
func NewLoop(buffer int) *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make([]func(), 0, max(buffer, 0)),
	}

	go l.run()

	return l
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

// Dispatch queues fn on the loop. Once the loop is closed fn runs on the
// calling goroutine so no delivery is lost.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting deliveries and waits for the queued ones to run.
// It must not be called from the loop goroutine.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.signal()
	<-l.done
}
