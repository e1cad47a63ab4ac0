package httpbin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Logger logs the start and completion of every request.
func Logger(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := GetValues(ctx)

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path = fmt.Sprintf("%s?%s", path, r.URL.RawQuery)
			}

			log.Debug("request started", "method", r.Method, "path", path, "remoteaddr", r.RemoteAddr)

			err := handler(ctx, w, r)

			log.Debug("request completed", "method", r.Method, "path", path, "remoteaddr", r.RemoteAddr, "statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}

		return h
	}

	return m
}

// Errors handles errors coming out of the call chain.
func Errors(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			appErr, ok := errors.AsType[*Error](err)
			if !ok {
				appErr = newInternal(err)
			}

			reqLog := log.With("trace_id", GetValues(ctx).TraceID)
			reqLog.Error(err.Error(), "source", appErr.source)

			if appErr.internal {
				appErr.Message = http.StatusText(appErr.Code)
			}

			return respondJSON(ctx, w, appErr.Code, appErr)
		}

		return h
	}

	return m
}

// Panics recovers from panics if they occur.
func Panics() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// CORS reflects the caller's Origin so browsers accept every response, and
// answers preflight requests on routes that accept OPTIONS.
func CORS() Middleware {
	const allowHeaders = "Authorization, Content-Type, Accept, X-Requested-With, Cache-Control"

	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return handler(ctx, w, r)
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Max-Age", "3600")
				return respondRaw(ctx, w, http.StatusNoContent, "", nil)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
