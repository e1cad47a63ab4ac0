package interceptor

import (
	"context"

	"github.com/google/uuid"

	"github.com/adamwoolhether/fetch/client"
)

// DefaultRequestIDHeader is used by RequestID when no header is given.
const DefaultRequestIDHeader = "X-Request-ID"

// RequestID stamps each exchange with a random UUID under header unless
// the request already carries one.
func RequestID(header string) client.Interceptor {
	if header == "" {
		header = DefaultRequestIDHeader
	}

	return func(next client.Executor) client.Executor {
		return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
			if x.Request.Header().Get(header) != "" {
				return next(ctx, x)
			}

			req := x.Request.WithHeader(header, uuid.NewString())

			return next(ctx, x.WithRequest(req))
		}
	}
}
