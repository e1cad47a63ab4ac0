package interceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/adamwoolhether/fetch/client"
)

// RetryOption is a functional option for [Retry].
type RetryOption func(*retryOpts) error

type retryOpts struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
	policy     retryablehttp.CheckRetry
	backoff    retryablehttp.Backoff
	logger     *slog.Logger
}

// WithMaxRetries sets how many times a failed exchange is re-run.
func WithMaxRetries(n int) RetryOption {
	return func(o *retryOpts) error {
		if n < 0 {
			return errors.New("max retries must not be negative")
		}
		o.maxRetries = n
		return nil
	}
}

// WithWait bounds the backoff between attempts.
func WithWait(minWait, maxWait time.Duration) RetryOption {
	return func(o *retryOpts) error {
		if minWait <= 0 || maxWait < minWait {
			return fmt.Errorf("invalid wait bounds [%s, %s]", minWait, maxWait)
		}
		o.waitMin, o.waitMax = minWait, maxWait
		return nil
	}
}

// WithRetryPolicy replaces retryablehttp.DefaultRetryPolicy.
func WithRetryPolicy(policy retryablehttp.CheckRetry) RetryOption {
	return func(o *retryOpts) error {
		if policy == nil {
			return errors.New("retry policy must not be nil")
		}
		o.policy = policy
		return nil
	}
}

// WithBackoff replaces retryablehttp.DefaultBackoff.
func WithBackoff(backoff retryablehttp.Backoff) RetryOption {
	return func(o *retryOpts) error {
		if backoff == nil {
			return errors.New("backoff must not be nil")
		}
		o.backoff = backoff
		return nil
	}
}

// WithRetryLogger logs every scheduled retry.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(o *retryOpts) error {
		o.logger = logger
		return nil
	}
}

// Retry returns an Interceptor that re-runs exchanges the retry policy
// deems recoverable: connection errors, 429 and most 5xx responses by
// default. Interrupted exchanges and exchanges streaming into a
// destination are never retried. A Cancel during backoff ends the wait
// and the next attempt reports the interrupt.
func Retry(optFns ...RetryOption) (client.Interceptor, error) {
	opts := retryOpts{
		maxRetries: 4,
		waitMin:    time.Second,
		waitMax:    30 * time.Second,
		policy:     retryablehttp.DefaultRetryPolicy,
		backoff:    retryablehttp.DefaultBackoff,
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying retry option: %w", err)
		}
	}

	return func(next client.Executor) client.Executor {
		return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
			for attempt := 0; ; attempt++ {
				resp, err := next(ctx, x)
				if attempt >= opts.maxRetries || x.Streaming() || !retryable(err) {
					return resp, err
				}

				hresp, cause := policyInput(resp, err)
				retry, _ := opts.policy(ctx, hresp, cause)
				if !retry {
					return resp, err
				}

				wait := opts.backoff(opts.waitMin, opts.waitMax, attempt, hresp)
				if opts.logger != nil {
					opts.logger.Info("retrying request", "method", x.Request.Method(), "url", x.Request.URL().String(), "attempt", attempt+1, "wait", wait.String(), "error", err)
				}

				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return resp, err
				case <-x.Token().Requested():
					timer.Stop()
				case <-timer.C:
				}
			}
		}
	}, nil
}

func retryable(err error) bool {
	if err == nil {
		return true
	}

	kind, ok := client.KindOf(err)
	if !ok {
		return false
	}

	return kind != client.KindInterrupted && kind != client.KindDecodeFailure
}

// policyInput adapts an engine outcome to what a retryablehttp policy
// inspects: the status and headers, or the raw transport error.
func policyInput(resp *client.Response, err error) (*http.Response, error) {
	var te *client.TransferError
	if errors.As(err, &te) && te.Kind != client.KindBadStatus {
		cause := te.Err
		if cause == nil {
			cause = err
		}
		return nil, cause
	}

	if resp == nil {
		return nil, err
	}

	return &http.Response{
		Status:     fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}, nil
}
