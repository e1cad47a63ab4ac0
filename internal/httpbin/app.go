// Package httpbin implements an httpbin-compatible test server. It backs
// the client tests, the end-to-end suite and the CLI's local playground.
package httpbin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Handler is a http.Handler that returns an error.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware defines a signature to chain Handler together.
type Middleware func(handler Handler) Handler

// App routes httpbin endpoints through a shared middleware stack.
type App struct {
	mux    *http.ServeMux
	mw     []Middleware
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for request logs and handler errors.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		a.logger = log
	}
}

// WithTracer injects the tracer that starts a span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *App) {
		a.tracer = tracer
	}
}

// New creates an App with every endpoint registered. A no-op tracer and
// the default slog logger are used unless overridden via options.
func New(optFns ...Option) *App {
	app := &App{mux: http.NewServeMux()}
	for _, opt := range optFns {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slog.Default()
	}
	if app.tracer == nil {
		app.tracer = noop.NewTracerProvider().Tracer("httpbin")
	}

	app.mw = []Middleware{Logger(app.logger), Errors(app.logger), Panics(), CORS()}
	routes(app)

	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// handle registers fn for method and path. An empty method matches any.
func (a *App) handle(method, path string, fn Handler) {
	handler := wrap(a.mw, fn)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx, span := a.startSpan(w, r)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = uuid.New().String()
		}

		v := Values{
			TraceID: traceID,
			Now:     time.Now().UTC(),
		}

		r = r.WithContext(setValues(ctx, &v))

		if err := handler(r.Context(), w, r); err != nil {
			a.logger.Error("httpbin", "handle", err)
		}
	}

	pattern := path
	if method != "" {
		pattern = fmt.Sprintf("%s %s", method, path)
	}

	a.mux.HandleFunc(pattern, h)
}

// startSpan continues the caller's trace when the request carries one and
// echoes the span context back in the response headers.
func (a *App) startSpan(w http.ResponseWriter, r *http.Request) (context.Context, trace.Span) {
	prop := otel.GetTextMapPropagator()

	ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := a.tracer.Start(ctx, "httpbin.handler", trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(attribute.String("path", r.RequestURI))

	prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

	return ctx, span
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}
