package client

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	userAgent         string
	noFollowRedirects bool
	logger            *slog.Logger
	compression       bool
	chunkSize         int
	config            Config
	interceptors      []Interceptor
}

// WithClient replaces the default [http.Client] used by the [Client].
// The client is copied, so later changes to hc do not affect the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the default per-request timeout. Requests built with
// [Builder.Timeout] override it.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.config.Timeout = d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithCompression advertises gzip and zstd support and transparently
// decodes compressed response bodies.
func WithCompression() Option {
	return func(c *options) error {
		c.compression = true
		return nil
	}
}

// WithChunkSize sets the size of the chunks bodies are streamed in, which
// is also the granularity of progress samples and cancellation checks.
func WithChunkSize(n int) Option {
	return func(c *options) error {
		if n <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d", n)
		}
		c.chunkSize = n
		return nil
	}
}

// WithBaseURL sets the prefix used for request URLs that are not absolute.
func WithBaseURL(base string) Option {
	return func(c *options) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: base url %q must be absolute", ErrInvalidURL, base)
		}
		c.config.BaseURL = base
		return nil
	}
}

// WithBaseHeaders sets headers sent with every request. Request headers
// with the same name take precedence.
func WithBaseHeaders(headers map[string]string) Option {
	return func(c *options) error {
		if c.config.Headers == nil {
			c.config.Headers = make(http.Header, len(headers))
		}
		for _, k := range slices.Sorted(maps.Keys(headers)) {
			c.config.Headers.Set(k, headers[k])
		}
		return nil
	}
}

// WithBaseParams sets parameters sent with every request, ahead of the
// request's own parameters.
func WithBaseParams(params ...Param) Option {
	return func(c *options) error {
		c.config.Params = append(c.config.Params, params...)
		return nil
	}
}

// WithConfig replaces the request defaults wholesale.
func WithConfig(cfg Config) Option {
	return func(c *options) error {
		if cfg.BaseURL != "" {
			if err := WithBaseURL(cfg.BaseURL)(c); err != nil {
				return err
			}
		}
		if cfg.Timeout < 0 {
			return errors.New("timeout must not be negative")
		}
		c.config = cfg.clone()
		return nil
	}
}

// WithInterceptors appends interceptors to the chain. The first interceptor
// registered is the outermost and sees the request first.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(c *options) error {
		for i, ic := range interceptors {
			if ic == nil {
				return fmt.Errorf("interceptor %d must not be nil", i)
			}
		}
		c.interceptors = append(c.interceptors, interceptors...)
		return nil
	}
}

// CallOption is a functional option for a single execution, see
// [Client.Execute] and [Do].
type CallOption func(*Exchange) error

// WithToken attaches a cancellation token to the execution.
func WithToken(t *Token) CallOption {
	return func(x *Exchange) error {
		if t == nil {
			return errors.New("token must not be nil")
		}
		x.token = t
		return nil
	}
}

// WithProgress reports response body progress after every chunk.
func WithProgress(fn ProgressFunc) CallOption {
	return func(x *Exchange) error {
		x.progress = fn
		return nil
	}
}

// WithUploadProgress reports request body progress after every chunk.
func WithUploadProgress(fn ProgressFunc) CallOption {
	return func(x *Exchange) error {
		x.uploadProgress = fn
		return nil
	}
}

// WithDestination streams a successful response body into the writer
// returned by fn instead of buffering it.
func WithDestination(fn DestinationFunc) CallOption {
	return func(x *Exchange) error {
		if fn == nil {
			return errors.New("destination must not be nil")
		}
		x.destination = fn
		return nil
	}
}
