package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// compression is an http.RoundTripper that negotiates gzip or zstd
// encoded responses and decodes them in flight. Requests that already
// carry an Accept-Encoding header are passed through untouched.
type compression struct {
	base http.RoundTripper
}

func (c compression) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("Accept-Encoding") != "" {
		return c.base.RoundTrip(r)
	}

	cpy := r.Clone(r.Context())
	cpy.Header.Set("Accept-Encoding", "zstd, gzip")

	resp, err := c.base.RoundTrip(cpy)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody || r.Method == http.MethodHead {
		return resp, nil
	}

	var decoded io.ReadCloser
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return resp, nil
			}
			resp.Body.Close()
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		decoded = &decodedBody{r: zr, closers: []io.Closer{zr, resp.Body}}
	case "zstd":
		zr, err := zstd.NewReader(resp.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("opening zstd body: %w", err)
		}
		rc := zr.IOReadCloser()
		decoded = &decodedBody{r: rc, closers: []io.Closer{rc, resp.Body}}
	default:
		return resp, nil
	}

	resp.Body = decoded
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = UnknownLength
	resp.Uncompressed = true

	return resp, nil
}

type decodedBody struct {
	r       io.Reader
	closers []io.Closer
}

func (d *decodedBody) Read(p []byte) (int, error) { return d.r.Read(p) }

func (d *decodedBody) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
