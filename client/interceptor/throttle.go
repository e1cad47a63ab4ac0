package interceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/adamwoolhether/fetch/client"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// throttle restricts outbound calls with the time/rate token bucket limiter.
type throttle struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	logFn   func() *slog.Logger
}

// Throttle returns an Interceptor that rate-limits exchanges to rps with
// the given burst. logFn lazily resolves the logger at request time; a nil
// logFn, or one returning nil, disables the exhaustion logs.
func Throttle(rps, burst int, logFn func() *slog.Logger) (client.Interceptor, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		logFn:   logFn,
	}

	return t.intercept, nil
}

func (t *throttle) intercept(next client.Executor) client.Executor {
	return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
		url := x.Request.URL()

		if err := ctx.Err(); err != nil {
			return nil, waitError(url.String(), fmt.Errorf("%w early: %w", ErrContextEnded, err))
		}

		var waited time.Duration
		logger := t.logFn()
		if logger != nil && t.limiter.Tokens() < 1 {
			logger.Info("throttle tokens exhausted", "rate", t.rps, "burst", t.burst, "path", url.Path)

			defer func() {
				logger.Info("throttle wait complete", "waited", waited.String(), "rate", t.rps, "burst", t.burst)
			}()
		}

		start := time.Now()

		err := t.wait(ctx, x.Token())
		waited = time.Since(start)
		if err != nil {
			if ctx.Err() == nil && x.Token().State() != client.Active {
				// The engine reports the interrupt and fires the callback.
				return next(ctx, x)
			}
			return nil, waitError(url.String(), fmt.Errorf("%w: %w", ErrWaitingFailed, err))
		}

		if err := ctx.Err(); err != nil { // Check context hasn't expired again.
			return nil, waitError(url.String(), fmt.Errorf("%w post-wait: %w", ErrContextEnded, err))
		}

		return next(ctx, x)
	}
}

// wait blocks on the limiter until a slot frees, ctx ends or tok is
// cancelled.
func (t *throttle) wait(ctx context.Context, tok *client.Token) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-tok.Requested():
			cancel()
		case <-ctx.Done():
		}
	}()

	return t.limiter.Wait(ctx)
}

// waitError reports a failed wait as an interrupt when the caller cancelled,
// and as a timeout otherwise: the limiter only gives up on deadlines.
func waitError(url string, err error) error {
	kind := client.KindTimeout
	if errors.Is(err, context.Canceled) {
		kind = client.KindInterrupted
	}

	return &client.TransferError{Kind: kind, URL: url, Err: err}
}
