package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/interceptor"
)

// Duration is a time.Duration read from strings such as "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Settings is the serialisable form of a client's configuration.
type Settings struct {
	BaseURL     string            `toml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	Headers     map[string]string `toml:"headers" envconfig:"HEADERS"`
	Params      []string          `toml:"params" envconfig:"PARAMS"`
	Timeout     Duration          `toml:"timeout" envconfig:"TIMEOUT"`
	UserAgent   string            `toml:"user_agent" envconfig:"USER_AGENT"`
	Compression bool              `toml:"compression" envconfig:"COMPRESSION"`
	NoRedirects bool              `toml:"no_redirects" envconfig:"NO_REDIRECTS"`
	ChunkSize   int               `toml:"chunk_size" envconfig:"CHUNK_SIZE" validate:"gte=0"`
	LogRequests bool              `toml:"log_requests" envconfig:"LOG_REQUESTS"`
	RequestID   string            `toml:"request_id" envconfig:"REQUEST_ID"`
	Throttle    Throttle          `toml:"throttle" envconfig:"THROTTLE"`
	Retry       Retry             `toml:"retry" envconfig:"RETRY"`
}

// Throttle enables rate limiting when RPS is set.
type Throttle struct {
	RPS   int `toml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst int `toml:"burst" envconfig:"BURST" validate:"required_with=RPS,gte=0"`
}

// Retry enables retries when Max is set.
type Retry struct {
	Max     int      `toml:"max" envconfig:"MAX" validate:"gte=0,lte=10"`
	WaitMin Duration `toml:"wait_min" envconfig:"WAIT_MIN"`
	WaitMax Duration `toml:"wait_max" envconfig:"WAIT_MAX"`
}

// Options converts s into client options. Interceptors are registered
// outermost first: logging, request id, retry, throttle.
func (s Settings) Options(logger *slog.Logger) ([]client.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}

	params, err := parseParams(s.Params)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{client.WithLogger(logger)}
	if s.BaseURL != "" {
		opts = append(opts, client.WithBaseURL(s.BaseURL))
	}
	if len(s.Headers) > 0 {
		opts = append(opts, client.WithBaseHeaders(s.Headers))
	}
	if len(params) > 0 {
		opts = append(opts, client.WithBaseParams(params...))
	}
	if s.Timeout.Duration > 0 {
		opts = append(opts, client.WithTimeout(s.Timeout.Duration))
	}
	if s.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(s.UserAgent))
	}
	if s.Compression {
		opts = append(opts, client.WithCompression())
	}
	if s.NoRedirects {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if s.ChunkSize > 0 {
		opts = append(opts, client.WithChunkSize(s.ChunkSize))
	}

	var interceptors []client.Interceptor
	if s.LogRequests {
		interceptors = append(interceptors, interceptor.Logging(logger))
	}
	if s.RequestID != "" {
		interceptors = append(interceptors, interceptor.RequestID(s.RequestID))
	}
	if s.Retry.Max > 0 {
		retryOpts := []interceptor.RetryOption{
			interceptor.WithMaxRetries(s.Retry.Max),
			interceptor.WithRetryLogger(logger),
		}
		if s.Retry.WaitMin.Duration > 0 || s.Retry.WaitMax.Duration > 0 {
			retryOpts = append(retryOpts, interceptor.WithWait(s.Retry.WaitMin.Duration, s.Retry.WaitMax.Duration))
		}
		ic, err := interceptor.Retry(retryOpts...)
		if err != nil {
			return nil, fmt.Errorf("configuring retry: %w", err)
		}
		interceptors = append(interceptors, ic)
	}
	if s.Throttle.RPS > 0 {
		ic, err := interceptor.Throttle(s.Throttle.RPS, s.Throttle.Burst, func() *slog.Logger { return logger })
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		interceptors = append(interceptors, ic)
	}
	if len(interceptors) > 0 {
		opts = append(opts, client.WithInterceptors(interceptors...))
	}

	return opts, nil
}

// parseParams reads "key=value" pairs, keeping their order.
func parseParams(raw []string) ([]client.Param, error) {
	params := make([]client.Param, 0, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, &FieldErrors{{Field: "params", Err: fmt.Sprintf("%q is not a key=value pair", kv)}}
		}
		params = append(params, client.P(k, v))
	}
	return params, nil
}
