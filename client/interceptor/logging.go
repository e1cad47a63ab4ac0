package interceptor

import (
	"context"
	"log/slog"
	"time"

	"github.com/adamwoolhether/fetch/client"
)

// Logging records every exchange: method and URL before it starts, then
// status, elapsed time and the failure kind, if any, once it completes.
// The result is returned untouched.
func Logging(log *slog.Logger) client.Interceptor {
	if log == nil {
		log = slog.Default()
	}

	return func(next client.Executor) client.Executor {
		return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
			req := x.Request
			url := req.URL().String()
			start := time.Now()

			log.Info("request started", "method", req.Method(), "url", url)

			resp, err := next(ctx, x)

			attrs := []any{"method", req.Method(), "url", url, "since", time.Since(start).String()}
			if resp != nil {
				attrs = append(attrs, "statusCode", resp.StatusCode, "bytes", resp.Size)
			}
			if err != nil {
				kind, _ := client.KindOf(err)
				attrs = append(attrs, "kind", kind.String(), "error", err)
				log.Warn("request failed", attrs...)
				return resp, err
			}

			log.Info("request completed", attrs...)

			return resp, err
		}
	}
}
