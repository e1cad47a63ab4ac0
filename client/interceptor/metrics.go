package interceptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adamwoolhether/fetch/client"
)

// Metrics collects Prometheus metrics about exchanges.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace and registers them
// with reg. Collectors already registered with reg are reused.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Outbound HTTP exchanges by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP exchanges.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "response_bytes_total",
			Help:      "Response body bytes read by method.",
		}, []string{"method"}),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.bytes, err = register(reg, m.bytes); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("registering collector: %w", err)
	}
	return c, nil
}

// Collectors returns the collectors backing m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.duration, m.bytes}
}

// Interceptor returns the client.Interceptor feeding m. The outcome label
// is "success" or the failure kind, such as "bad_status".
func (m *Metrics) Interceptor() client.Interceptor {
	return func(next client.Executor) client.Executor {
		return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
			method := x.Request.Method()
			start := time.Now()

			resp, err := next(ctx, x)

			outcome := "success"
			if err != nil {
				kind, _ := client.KindOf(err)
				outcome = kind.String()
			}

			m.requests.WithLabelValues(method, outcome).Inc()
			m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			if resp != nil {
				m.bytes.WithLabelValues(method).Add(float64(resp.Size))
			}

			return resp, err
		}
	}
}
