package httpbin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const (
	base ctxKey = iota + 1
)

// Values are shared by the middleware and the handler of one request.
type Values struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

// setStatusCode updates the Values' status code.
func setStatusCode(ctx context.Context, statusCode int) {
	v, ok := ctx.Value(base).(*Values)
	if !ok {
		return
	}

	v.StatusCode = statusCode
}

// GetValues retrieves the Values from the given context.
func GetValues(ctx context.Context) *Values {
	v, ok := ctx.Value(base).(*Values)
	if !ok {
		return &Values{
			TraceID: uuid.Nil.String(),
			Now:     time.Now(),
		}
	}

	return v
}

func setValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, base, v)
}
