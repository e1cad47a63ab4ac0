package interceptor

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/fetch/client"
)

const tracerName = "github.com/adamwoolhether/fetch/client/interceptor"

// Tracing wraps each exchange in a client span and injects the span
// context into the outgoing headers with the global text map propagator.
// A nil provider disables tracing.
func Tracing(tp trace.TracerProvider) client.Interceptor {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	tracer := tp.Tracer(tracerName)

	return func(next client.Executor) client.Executor {
		return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
			req := x.Request

			ctx, span := tracer.Start(ctx, "fetch."+req.Method(), trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.request.method", req.Method()),
				attribute.String("url.full", req.URL().String()),
			)

			carrier := make(http.Header)
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(carrier))
			if len(carrier) > 0 {
				x = x.WithRequest(req.WithHeaders(carrier))
			}

			resp, err := next(ctx, x)
			if resp != nil {
				span.SetAttributes(
					attribute.Int("http.response.status_code", resp.StatusCode),
					attribute.Int64("http.response.body.size", resp.Size),
				)
			}
			if err != nil {
				kind, _ := client.KindOf(err)
				span.SetAttributes(attribute.String("error.type", kind.String()))
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return resp, err
		}
	}
}
