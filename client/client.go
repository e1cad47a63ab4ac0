package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/adamwoolhether/fetch/client/decode"
	"github.com/adamwoolhether/fetch/client/download"
	"github.com/adamwoolhether/fetch/result"
)

// Client wraps the std-lib *http.Client together with the request
// defaults and the interceptor chain every execution passes through.
// It is immutable after Build and safe for concurrent use.
type Client struct {
	c         *http.Client
	logger    *slog.Logger
	config    Config
	exec      Executor
	chunkSize int
}

// Build creates a Client. The zero set of options yields a client with no
// base URL, no defaults and no interceptors.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:         &http.Client{},
		logger:    slog.Default(),
		chunkSize: defaultChunkSize,
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	// The per-request deadline replaces the whole-exchange one.
	if opts.config.Timeout > 0 {
		client.c.Timeout = 0
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.chunkSize > 0 {
		client.chunkSize = opts.chunkSize
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.compression {
		transport = compression{base: transport}
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	client.c.Transport = transport

	client.config = opts.config.clone()
	client.exec = chain(opts.interceptors, client.transfer)

	return client, nil
}

// Config returns a copy of the defaults applied to prepared requests.
func (c *Client) Config() Config {
	return c.config.clone()
}

// Logger returns the logger the client reports through.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Prepare builds b against the client's defaults.
func (c *Client) Prepare(b Builder) (*Request, error) {
	return b.Build(c.config)
}

// Execute runs req through the interceptor chain and the transfer engine.
// A BadStatus failure returns the response alongside the error so the
// status and headers stay inspectable.
func (c *Client) Execute(ctx context.Context, req *Request, opts ...CallOption) (*Response, error) {
	if req == nil {
		return nil, errors.New("request must not be nil")
	}

	x := &Exchange{Request: req, chunkSize: c.chunkSize}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			return nil, fmt.Errorf("applying call option: %w", err)
		}
	}
	if x.token == nil {
		x.token = NewToken()
	}
	if !x.token.claim() {
		return nil, &TransferError{Kind: KindInterrupted, URL: req.url.String(), Err: ErrTokenSpent}
	}
	defer x.token.finish()

	return c.exec(ctx, x)
}

// Send prepares b and executes it.
func (c *Client) Send(ctx context.Context, b Builder, opts ...CallOption) (*Response, error) {
	req, err := c.Prepare(b)
	if err != nil {
		return nil, err
	}

	return c.Execute(ctx, req, opts...)
}

// Download streams the response body of req to destPath.
// Data streams to a temp file in the same directory, then the temp file is
// renamed to destPath on success or removed on failure. With
// [WithSkipExisting] and an existing destPath, Download returns a nil
// Response and a nil error without touching the network.
func (c *Client) Download(ctx context.Context, req *Request, destPath string, opts ...DownloadOption) (*Response, error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}

	var settings downloadOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying download option: %w", err)
		}
	}

	file, err := download.Create(destPath, c.logger, settings.file...)
	if err != nil {
		if errors.Is(err, download.ErrExists) {
			c.logger.Info("skipping existing file", "path", destPath)
			return nil, nil
		}
		return nil, fmt.Errorf("download: %w", err)
	}

	callOpts := append(slices.Clip(settings.call), WithDestination(func(*Request, *Response) (io.Writer, error) {
		return file, nil
	}))
	if settings.logProgress {
		callOpts = append(callOpts, WithProgress(download.LogProgress(c.logger)))
	}

	resp, err := c.Execute(ctx, req, callOpts...)
	if err != nil {
		if abortErr := file.Abort(); abortErr != nil {
			c.logger.Error("failed to remove temp file", "error", abortErr)
		}
		return resp, err
	}

	if err := file.Commit(); err != nil {
		return resp, &TransferError{Kind: KindIOFailure, StatusCode: resp.StatusCode, URL: resp.URL, Err: err}
	}

	return resp, nil
}

// Do executes req and decodes the buffered body with dec. The response is
// nil when the failure happened before any response arrived.
func Do[T any](ctx context.Context, c *Client, req *Request, dec decode.Decoder[T], opts ...CallOption) (*Response, result.Result[T]) {
	resp, err := c.Execute(ctx, req, opts...)
	return resp, Decode(resp, err, dec)
}

// Decode turns the outcome of an execution into a Result. Transfer errors
// pass through unchanged; decoder errors become DecodeFailure carrying the
// raw body.
func Decode[T any](resp *Response, err error, dec decode.Decoder[T]) result.Result[T] {
	if err != nil {
		return result.Failure[T](err)
	}
	if resp == nil {
		return result.Failure[T](errors.New("no response to decode"))
	}

	v, err := dec.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return result.Failure[T](&TransferError{
			Kind:       KindDecodeFailure,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			URL:        resp.URL,
			Err:        err,
		})
	}

	return result.Success(v)
}
