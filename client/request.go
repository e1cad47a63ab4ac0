package client

import (
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Param is a single query or form parameter. Params keep their order and
// duplicates are allowed.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for building a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}

// Payload is a streamed request body handed to the engine by a [SourceFunc].
// Size is the declared total in bytes. Zero or [UnknownLength] streams the
// body with chunked encoding.
// The engine closes Reader once the transfer ends if it implements io.Closer.
type Payload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// SourceFunc supplies the streamed body for an upload. It is invoked once
// per execution, so a retried request re-opens its source.
type SourceFunc func(req *Request) (*Payload, error)

type credentials struct {
	user     string
	password string
}

// Request is an immutable description of one HTTP call. It is produced by
// [Builder.Build] and never modified by execution; interceptors that need
// a different request derive one with the With* methods.
type Request struct {
	method  string
	url     *url.URL
	header  http.Header
	params  []Param
	body    []byte
	source  SourceFunc
	auth    *credentials
	timeout time.Duration
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// URL returns a copy of the resolved URL, query string included.
func (r *Request) URL() *url.URL {
	u := *r.url
	return &u
}

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// Query returns the ordered query parameters encoded into the URL.
func (r *Request) Query() []Param {
	if r.url.RawQuery == "" {
		return nil
	}

	var params []Param
	for pair := range strings.SplitSeq(r.url.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			key = k
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			value = v
		}
		params = append(params, Param{Key: key, Value: value})
	}

	return params
}

// Body returns a copy of the in-memory body, nil when the request streams
// its body from a source or has none.
func (r *Request) Body() []byte { return slices.Clone(r.body) }

// Streamed reports whether the body is produced by a SourceFunc.
func (r *Request) Streamed() bool { return r.source != nil }

// Timeout returns the per-request timeout, zero meaning none.
func (r *Request) Timeout() time.Duration { return r.timeout }

// WithHeader returns a copy of r with the header key set to value.
func (r *Request) WithHeader(key, value string) *Request {
	cpy := r.clone()
	cpy.header.Set(key, value)
	return cpy
}

// WithHeaders returns a copy of r with every header in h set, replacing
// existing values for the same keys.
func (r *Request) WithHeaders(h http.Header) *Request {
	cpy := r.clone()
	for k, v := range h {
		cpy.header[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	return cpy
}

func (r *Request) clone() *Request {
	u := *r.url
	h := r.header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	return &Request{
		method:  r.method,
		url:     &u,
		header:  h,
		params:  slices.Clone(r.params),
		body:    r.body,
		source:  r.source,
		auth:    r.auth,
		timeout: r.timeout,
	}
}

// authorization renders the Authorization header value for the stored
// basic credentials.
func (r *Request) authorization() string {
	if r.auth == nil {
		return ""
	}
	raw := r.auth.user + ":" + r.auth.password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// String renders the request line, headers and in-memory body.
func (r *Request) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "--> %s %s\n", r.method, r.url)
	fmt.Fprintf(&b, "Body : %s\n", r.describeBody())
	b.WriteString("Headers : (")
	fmt.Fprintf(&b, "%d)\n", len(r.header)+boolInt(r.auth != nil))
	for _, k := range slices.Sorted(maps.Keys(r.header)) {
		for _, v := range r.header[k] {
			fmt.Fprintf(&b, "%s : %s\n", k, v)
		}
	}
	if r.auth != nil {
		b.WriteString("Authorization : Basic ******\n")
	}

	return b.String()
}

// Curl renders an equivalent curl command line.
func (r *Request) Curl() string {
	parts := []string{"curl", "-i"}

	if r.method != http.MethodGet {
		if r.method == http.MethodHead {
			parts = append(parts, "-I")
		} else {
			parts = append(parts, "-X", r.method)
		}
	}

	for _, k := range slices.Sorted(maps.Keys(r.header)) {
		for _, v := range r.header[k] {
			parts = append(parts, "-H", shellQuote(k+":"+v))
		}
	}
	if auth := r.authorization(); auth != "" {
		parts = append(parts, "-H", shellQuote("Authorization:"+auth))
	}

	if len(r.body) > 0 {
		parts = append(parts, "-d", shellQuote(string(r.body)))
	} else if r.source != nil {
		parts = append(parts, "--data-binary", "@-")
	}

	parts = append(parts, shellQuote(r.url.String()))

	return strings.Join(parts, " ")
}

func (r *Request) describeBody() string {
	switch {
	case r.source != nil:
		return "(streamed)"
	case len(r.body) == 0:
		return "(empty)"
	default:
		return string(r.body)
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
