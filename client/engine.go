package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// transfer is the innermost Executor: it performs one HTTP exchange,
// honoring the exchange's token at every chunk boundary.
func (c *Client) transfer(ctx context.Context, x *Exchange) (*Response, error) {
	req := x.Request
	tok := x.token
	start := time.Now()

	ctx, abort := context.WithCancel(ctx)
	defer abort()

	if req.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.timeout)
		defer cancel()
	}

	if !tok.bind(abort) {
		return nil, &TransferError{Kind: KindInterrupted, URL: req.url.String(), Err: ErrTokenSpent}
	}
	defer tok.unbind()
	if tok.interrupted(req) {
		return nil, interruptError(req)
	}

	httpReq, err := c.newHTTPRequest(ctx, x)
	if err != nil {
		return nil, &TransferError{Kind: KindIOFailure, URL: req.url.String(), Err: err}
	}

	resp, err := c.c.Do(httpReq)
	if err != nil {
		if tok.interrupted(req) {
			return nil, interruptError(req)
		}
		return nil, &TransferError{Kind: classify(err), URL: req.url.String(), Err: err}
	}

	defer func() {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrBodySize)); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	out := &Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		URL:           req.url.String(),
	}
	if out.ContentLength < 0 {
		out.ContentLength = UnknownLength
	}

	if tok.interrupted(req) {
		return nil, interruptError(req)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			if tok.interrupted(req) {
				return nil, interruptError(req)
			}
			b = []byte("unable to read body")
		}

		out.Body = b
		out.Size = int64(len(b))
		out.Elapsed = time.Since(start)

		return out, &TransferError{
			Kind:       KindBadStatus,
			StatusCode: resp.StatusCode,
			Body:       b,
			URL:        out.URL,
		}
	}

	var (
		sink io.Writer
		buf  *bytes.Buffer
	)
	if x.destination != nil {
		w, err := x.destination(req, out)
		if err != nil {
			return nil, &TransferError{Kind: KindIOFailure, StatusCode: resp.StatusCode, URL: out.URL, Err: fmt.Errorf("opening destination: %w", err)}
		}
		sink = w
	} else {
		buf = new(bytes.Buffer)
		if resp.ContentLength > 0 && resp.ContentLength <= maxPrealloc {
			buf.Grow(int(resp.ContentLength))
		}
		sink = buf
	}

	n, err := copyChunks(x, sink, resp.Body, out.ContentLength)
	if err != nil {
		if errors.Is(err, errInterrupted) || tok.interrupted(req) {
			return nil, interruptError(req)
		}

		kind := classify(err)
		var sinkErr errSinkWrite
		if errors.As(err, &sinkErr) {
			kind = KindIOFailure
		}
		return nil, &TransferError{Kind: kind, StatusCode: resp.StatusCode, URL: out.URL, Err: fmt.Errorf("reading body: %w", err)}
	}

	if req.method != http.MethodHead && out.ContentLength >= 0 && n != out.ContentLength {
		return nil, &TransferError{
			Kind:       KindIOFailure,
			StatusCode: resp.StatusCode,
			URL:        out.URL,
			Err:        fmt.Errorf("%w: expected %d bytes, got %d", ErrContentLengthMismatch, out.ContentLength, n),
		}
	}

	if buf != nil {
		out.Body = buf.Bytes()
	}
	out.Size = n
	out.Elapsed = time.Since(start)

	return out, nil
}

// maxPrealloc caps how much of a declared Content-Length is reserved up
// front for buffered bodies.
const maxPrealloc = 8 << 20 // 8MB

func (c *Client) newHTTPRequest(ctx context.Context, x *Exchange) (*http.Request, error) {
	req := x.Request

	var (
		body          io.Reader
		contentLength int64
		contentType   string
	)
	switch {
	case req.source != nil:
		p, err := req.source(req)
		if err != nil {
			return nil, fmt.Errorf("opening request source: %w", err)
		}
		if p == nil || p.Reader == nil {
			return nil, errors.New("request source returned no payload")
		}
		body = p.Reader
		contentLength = p.Size
		if contentLength <= 0 {
			contentLength = UnknownLength
		}
		contentType = p.ContentType
	case req.body != nil:
		body = bytes.NewReader(req.body)
		contentLength = int64(len(req.body))
	}

	var httpBody io.Reader
	if body != nil {
		httpBody = &uploadReader{
			r:        body,
			token:    x.token,
			progress: x.uploadProgress,
			total:    contentLength,
			size:     x.chunkSize,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url.String(), httpBody)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	switch {
	case body == nil:
	case contentLength == 0:
		if rc, ok := body.(io.Closer); ok {
			_ = rc.Close()
		}
		httpReq.Body = http.NoBody
		httpReq.ContentLength = 0
	case contentLength > 0:
		httpReq.ContentLength = contentLength
	default:
		httpReq.ContentLength = UnknownLength
	}

	if req.body != nil && req.source == nil {
		raw := req.body
		httpReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}

	httpReq.Header = req.header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.auth != nil {
		httpReq.SetBasicAuth(req.auth.user, req.auth.password)
	}

	return httpReq, nil
}

func interruptError(req *Request) error {
	return &TransferError{Kind: KindInterrupted, URL: req.url.String()}
}

// classify maps a transport error to the Kind a caller can act on.
func classify(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindInterrupted
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return KindTimeout
	}

	var (
		dnsErr     *net.DNSError
		opErr      *net.OpError
		certErr    *tls.CertificateVerificationError
		recordErr  tls.RecordHeaderError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &certErr),
		errors.As(err, &recordErr),
		errors.As(err, &authErr),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return KindConnectFailure
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return KindConnectFailure
	}

	return KindIOFailure
}
