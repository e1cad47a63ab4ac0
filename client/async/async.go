package async

import (
	"context"
	"slices"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/decode"
	"github.com/adamwoolhether/fetch/result"
)

// Callback executes req on a worker, decodes the body with dec and passes
// the request, the response (nil when none arrived) and the result to fn
// exactly once.
func Callback[T any](ctx context.Context, c *client.Client, req *client.Request, dec decode.Decoder[T], fn func(*client.Request, *client.Response, result.Result[T]), opts ...Option) *Handle {
	return run(ctx, c, req, dec, func(resp *client.Response, res result.Result[T]) {
		if fn != nil {
			fn(req, resp, res)
		}
	}, apply(opts))
}

// Stream executes req on a worker and emits its single result on the
// returned channel, which is closed afterwards.
func Stream[T any](ctx context.Context, c *client.Client, req *client.Request, dec decode.Decoder[T], opts ...Option) (<-chan result.Result[T], *Handle) {
	ch := make(chan result.Result[T], 1)
	h := run(ctx, c, req, dec, func(_ *client.Response, res result.Result[T]) {
		ch <- res
		close(ch)
	}, apply(opts))

	return ch, h
}

// Observe executes req on a worker and publishes its result through the
// returned Value.
func Observe[T any](ctx context.Context, c *client.Client, req *client.Request, dec decode.Decoder[T], opts ...Option) (*Value[T], *Handle) {
	o := apply(opts)
	v := newValue[T](o.dispatcher)
	h := run(ctx, c, req, dec, func(_ *client.Response, res result.Result[T]) {
		v.resolve(res)
	}, o)

	return v, h
}

// Download streams req to destPath on a worker and passes the outcome to
// fn exactly once. fn may be nil when only the Handle is of interest.
func Download(ctx context.Context, c *client.Client, req *client.Request, destPath string, fn func(*client.Response, error), opts ...Option) *Handle {
	o := apply(opts)
	h := newHandle(o.token)

	dlOpts := append(slices.Clip(o.download), client.WithCallOptions(append(slices.Clip(o.call), client.WithToken(o.token))...))

	work := func(ctx context.Context) error {
		resp, err := c.Download(ctx, req, destPath, dlOpts...)
		deliver(o.dispatcher, h, func() {
			if fn != nil {
				fn(resp, err)
			}
		})
		return err
	}
	skipped := func(err error) {
		o.token.Discard(req)
		failure := notStarted(req, err)
		deliver(o.dispatcher, h, func() {
			if fn != nil {
				fn(nil, failure)
			}
		})
	}

	spawn(ctx, o.pool, o.token, work, skipped)

	return h
}

// run executes and decodes on the worker, then redirects the outcome to
// the dispatcher once.
func run[T any](ctx context.Context, c *client.Client, req *client.Request, dec decode.Decoder[T], emit func(*client.Response, result.Result[T]), o options) *Handle {
	h := newHandle(o.token)
	callOpts := append(slices.Clip(o.call), client.WithToken(o.token))

	work := func(ctx context.Context) error {
		resp, res := client.Do(ctx, c, req, dec, callOpts...)
		deliver(o.dispatcher, h, func() { emit(resp, res) })
		return res.Err()
	}
	skipped := func(err error) {
		o.token.Discard(req)
		res := result.Failure[T](notStarted(req, err))
		deliver(o.dispatcher, h, func() { emit(nil, res) })
	}

	spawn(ctx, o.pool, o.token, work, skipped)

	return h
}

func deliver(d Dispatcher, h *Handle, fn func()) {
	d.Dispatch(func() {
		defer close(h.done)
		fn()
	})
}

// spawn runs work on pool, or on its own goroutine without one. Cancelling
// tok abandons work still waiting for a pool slot.
func spawn(ctx context.Context, pool *Pool, tok *client.Token, work WorkFunc, skipped func(error)) {
	if pool != nil {
		pool.submit(ctx, work, tok.Requested(), skipped)
		return
	}

	go func() {
		_ = work(ctx)
	}()
}

// notStarted describes work the pool never ran.
func notStarted(req *client.Request, err error) error {
	te := &client.TransferError{Kind: client.KindInterrupted, Err: err}
	if req != nil {
		te.URL = req.URL().String()
	}
	return te
}
