package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

type headerField struct {
	key   string
	value string
}

// Builder accumulates the parts of a [Request]. Every method returns a new
// Builder, so partially configured builders can be shared and extended
// without affecting one another. Nothing touches the network until the
// built Request is executed.
type Builder struct {
	method      string
	rawURL      string
	headers     []headerField
	params      []Param
	body        []byte
	jsonBody    any
	contentType string
	source      SourceFunc
	auth        *credentials
	timeout     time.Duration
	err         error
}

// NewRequest starts a Builder for method against rawURL. rawURL may be
// absolute or relative to the client's base URL.
func NewRequest(method, rawURL string) Builder {
	return Builder{method: strings.ToUpper(method), rawURL: rawURL}
}

// Get starts a GET Builder with the given query parameters.
func Get(rawURL string, params ...Param) Builder {
	return NewRequest(http.MethodGet, rawURL).Params(params...)
}

// Head starts a HEAD Builder with the given query parameters.
func Head(rawURL string, params ...Param) Builder {
	return NewRequest(http.MethodHead, rawURL).Params(params...)
}

// Delete starts a DELETE Builder with the given query parameters.
func Delete(rawURL string, params ...Param) Builder {
	return NewRequest(http.MethodDelete, rawURL).Params(params...)
}

// Post starts a POST Builder. Without an explicit body the parameters are
// sent form-encoded in the body.
func Post(rawURL string, params ...Param) Builder {
	return NewRequest(http.MethodPost, rawURL).Params(params...)
}

// Put starts a PUT Builder. Without an explicit body the parameters are
// sent form-encoded in the body.
func Put(rawURL string, params ...Param) Builder {
	return NewRequest(http.MethodPut, rawURL).Params(params...)
}

// Patch starts a PATCH Builder. Without an explicit body the parameters
// are sent form-encoded in the body.
func Patch(rawURL string, params ...Param) Builder {
	return NewRequest(http.MethodPatch, rawURL).Params(params...)
}

// Header appends a header. A later header with the same canonical key
// replaces an earlier one.
func (b Builder) Header(key, value string) Builder {
	b.headers = append(slices.Clip(b.headers), headerField{key: key, value: value})
	return b
}

// Headers appends every header in h, in key order.
func (b Builder) Headers(h map[string]string) Builder {
	for _, k := range slices.Sorted(maps.Keys(h)) {
		b = b.Header(k, h[k])
	}
	return b
}

// Param appends a single parameter.
func (b Builder) Param(key, value string) Builder {
	return b.Params(Param{Key: key, Value: value})
}

// Params appends parameters, preserving order and duplicates.
func (b Builder) Params(params ...Param) Builder {
	b.params = append(slices.Clip(b.params), params...)
	return b
}

// Body sets a raw in-memory body, replacing any JSON body or source.
func (b Builder) Body(body []byte) Builder {
	b.body = slices.Clone(body)
	b.jsonBody = nil
	b.source = nil
	return b
}

// JSON sets a body encoded as JSON at build time. Content-Type defaults
// to application/json unless overridden.
func (b Builder) JSON(v any) Builder {
	b.jsonBody = v
	b.body = nil
	b.source = nil
	return b
}

// ContentType overrides the Content-Type header of the body.
func (b Builder) ContentType(contentType string) Builder {
	if contentType == "" {
		b.err = errors.Join(b.err, errors.New("cannot use empty content type"))
		return b
	}
	b.contentType = contentType
	return b
}

// Source streams the body from fn at execution time.
func (b Builder) Source(fn SourceFunc) Builder {
	if fn == nil {
		b.err = errors.Join(b.err, errors.New("source must not be nil"))
		return b
	}
	b.source = fn
	b.body = nil
	b.jsonBody = nil
	return b
}

// BasicAuth attaches basic credentials.
func (b Builder) BasicAuth(user, password string) Builder {
	b.auth = &credentials{user: user, password: password}
	return b
}

// BearerAuth sets an Authorization bearer token header.
func (b Builder) BearerAuth(token string) Builder {
	return b.Header("Authorization", "Bearer "+token)
}

// Timeout bounds the whole exchange, overriding the client default.
func (b Builder) Timeout(d time.Duration) Builder {
	if d < 0 {
		b.err = errors.Join(b.err, errors.New("timeout must not be negative"))
		return b
	}
	b.timeout = d
	return b
}

// Build resolves the Builder against cfg into an immutable Request.
// It fails when the resolved URL is not an absolute http(s) URL or a
// JSON body cannot be encoded.
func (b Builder) Build(cfg Config) (*Request, error) {
	if b.err != nil {
		return nil, fmt.Errorf("building request: %w", b.err)
	}
	if b.method == "" {
		return nil, errors.New("building request: method must not be empty")
	}

	u, err := resolveURL(cfg.BaseURL, b.rawURL)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	for k, v := range cfg.Headers {
		header[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	for _, h := range b.headers {
		header.Set(h.key, h.value)
	}

	params := slices.Concat(cfg.Params, b.params)

	body := b.body
	if b.jsonBody != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(b.jsonBody); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = buf.Bytes()
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	hasBody := body != nil || b.source != nil
	switch {
	case len(params) > 0 && !hasBody && allowsFormBody(b.method):
		body = []byte(encodeParams(params))
		header.Set("Content-Type", "application/x-www-form-urlencoded")
	case len(params) > 0:
		q := encodeParams(params)
		if u.RawQuery != "" {
			u.RawQuery += "&" + q
		} else {
			u.RawQuery = q
		}
	}

	if b.contentType != "" {
		header.Set("Content-Type", b.contentType)
	}

	timeout := cfg.Timeout
	if b.timeout > 0 {
		timeout = b.timeout
	}

	req := Request{
		method:  b.method,
		url:     u,
		header:  header,
		params:  params,
		body:    body,
		source:  b.source,
		auth:    b.auth,
		timeout: timeout,
	}

	return &req, nil
}

// resolveURL joins base and raw only when raw is not already absolute.
// With a base set, a raw path whose first segment holds a colon, such as
// "users:list", is a path and not a scheme.
func resolveURL(base, raw string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if base != "" && ref.Opaque != "" {
		if ref, err = url.Parse("./" + raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
	}

	u := ref
	if !ref.IsAbs() {
		if base == "" {
			return nil, fmt.Errorf("%w: %q is relative and no base url is configured", ErrInvalidURL, raw)
		}

		b, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: base: %w", ErrInvalidURL, err)
		}

		joined := b.JoinPath(ref.EscapedPath())
		joined.RawQuery = ref.RawQuery
		joined.Fragment = ref.Fragment
		u = joined
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, u.String())
	}

	return u, nil
}

// encodeParams encodes params in order, unlike url.Values which sorts.
func encodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func allowsFormBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
