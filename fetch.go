// Package fetch exposes the client builder and a process-wide default
// client for one-line requests.
//
//	resp, err := fetch.Get(ctx, "https://httpbin.org/get", client.P("q", "go"))
//
// Install a configured client with [SetDefault] to give every helper a
// base URL, default headers or interceptors.
package fetch

import (
	"context"
	"sync"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/decode"
	"github.com/adamwoolhether/fetch/result"
)

var (
	mu      sync.RWMutex
	current *client.Client
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, the default http.Client and http.Transport are used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// SetDefault installs c as the client used by the package helpers.
// A nil c restores the zero-option client.
func SetDefault(c *client.Client) {
	mu.Lock()
	defer mu.Unlock()
	current = c
}

// Default returns the client used by the package helpers, building a
// zero-option client on first use.
func Default() *client.Client {
	mu.RLock()
	c := current
	mu.RUnlock()
	if c != nil {
		return c
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		// Build cannot fail without options.
		current, _ = client.Build()
	}

	return current
}

// Send prepares b against the default client and executes it.
func Send(ctx context.Context, b client.Builder, opts ...client.CallOption) (*client.Response, error) {
	return Default().Send(ctx, b, opts...)
}

// Get executes a GET request with the default client.
func Get(ctx context.Context, rawURL string, params ...client.Param) (*client.Response, error) {
	return Send(ctx, client.Get(rawURL, params...))
}

// Head executes a HEAD request with the default client.
func Head(ctx context.Context, rawURL string, params ...client.Param) (*client.Response, error) {
	return Send(ctx, client.Head(rawURL, params...))
}

// Delete executes a DELETE request with the default client.
func Delete(ctx context.Context, rawURL string, params ...client.Param) (*client.Response, error) {
	return Send(ctx, client.Delete(rawURL, params...))
}

// Post executes a POST request with the default client. The parameters
// are sent form-encoded.
func Post(ctx context.Context, rawURL string, params ...client.Param) (*client.Response, error) {
	return Send(ctx, client.Post(rawURL, params...))
}

// Put executes a PUT request with the default client. The parameters are
// sent form-encoded.
func Put(ctx context.Context, rawURL string, params ...client.Param) (*client.Response, error) {
	return Send(ctx, client.Put(rawURL, params...))
}

// Patch executes a PATCH request with the default client. The parameters
// are sent form-encoded.
func Patch(ctx context.Context, rawURL string, params ...client.Param) (*client.Response, error) {
	return Send(ctx, client.Patch(rawURL, params...))
}

// As prepares b against the default client, executes it and decodes the
// body with dec.
func As[T any](ctx context.Context, b client.Builder, dec decode.Decoder[T], opts ...client.CallOption) (*client.Response, result.Result[T]) {
	c := Default()

	req, err := c.Prepare(b)
	if err != nil {
		return nil, result.Failure[T](err)
	}

	return client.Do(ctx, c, req, dec, opts...)
}
