package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolShutdown is returned for work submitted to a pool after Shutdown.
var ErrPoolShutdown = errors.New("pool is shut down")

// ErrAbandoned is reported for queued work cancelled before it started.
var ErrAbandoned = errors.New("cancelled while queued")

// WorkFunc is the signature for async work.
type WorkFunc func(ctx context.Context) error

// Pool runs work on goroutines with an optional concurrency limit and
// collects their errors.
type Pool struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
}

// NewPool creates a Pool running at most maxConcurrent functions at once.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewPool(maxConcurrent int) *Pool {
	p := &Pool{}
	if maxConcurrent > 0 {
		p.sem = make(chan struct{}, maxConcurrent)
	}
	return p
}

// Wait blocks until all submitted work completes.
// Returns all errors joined via errors.Join.
func (p *Pool) Wait() error {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	return errors.Join(p.errs...)
}

// Shutdown prevents queued and future work from executing. Work that
// already started runs to completion.
func (p *Pool) Shutdown() {
	p.shutdown.Store(true)
}

// Go launches fn in a new goroutine managed by the pool and returns a Task
// for tracking it.
func (p *Pool) Go(ctx context.Context, fn WorkFunc) *Task {
	return p.submit(ctx, fn, nil, nil)
}

// submit is Go with a fallback that runs, on the pool goroutine, when fn
// never gets to run. Closing stop abandons the work while it waits for a
// slot; stop may be nil.
func (p *Pool) submit(ctx context.Context, fn WorkFunc, stop <-chan struct{}, skipped func(error)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(t.done)
			p.wg.Done()
		}()

		skip := func(err error) {
			t.err = err
			p.recordErr(err)
			if skipped != nil {
				skipped(err)
			}
		}

		if p.sem != nil {
			select {
			case p.sem <- struct{}{}:
				defer func() {
					<-p.sem
				}()
			case <-ctx.Done():
				skip(ctx.Err())
				return
			case <-stop:
				skip(ErrAbandoned)
				return
			}
		}

		if p.shutdown.Load() {
			skip(ErrPoolShutdown)
			return
		}

		t.err = fn(ctx)
		if t.err != nil {
			p.recordErr(t.err)
		}
	}()

	return t
}

// recordErr appends err to the pool's error slice under the mutex.
func (p *Pool) recordErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// Task represents in-flight or completed work on a Pool.
type Task struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Done returns a channel that is closed when the work completes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err blocks until the work completes and returns its error.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Cancel cancels the work's context.
func (t *Task) Cancel() {
	t.cancel()
}
