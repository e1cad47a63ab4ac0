package client

import (
	"context"
	"slices"
)

// Exchange is one execution of a Request together with its per-call
// collaborators. Interceptors receive it and pass it, or a derived copy,
// to the next Executor.
type Exchange struct {
	Request *Request

	token          *Token
	progress       ProgressFunc
	uploadProgress ProgressFunc
	destination    DestinationFunc
	chunkSize      int
}

// Token returns the cancellation token of the exchange, never nil.
func (x *Exchange) Token() *Token { return x.token }

// Streaming reports whether the response body is written to a
// destination sink instead of being buffered.
func (x *Exchange) Streaming() bool { return x.destination != nil }

// WithRequest returns a copy of x carrying req.
func (x *Exchange) WithRequest(req *Request) *Exchange {
	cpy := *x
	cpy.Request = req
	return &cpy
}

// Executor performs an exchange and returns the raw response. A non-nil
// error is always a *TransferError when produced by the engine.
type Executor func(ctx context.Context, x *Exchange) (*Response, error)

// Interceptor decorates an Executor, e.g. for logging or retries.
type Interceptor func(next Executor) Executor

// chain wraps the interceptors around exec so that the first one is the
// outermost.
func chain(interceptors []Interceptor, exec Executor) Executor {
	for _, ic := range slices.Backward(interceptors) {
		if ic != nil {
			exec = ic(exec)
		}
	}

	return exec
}
