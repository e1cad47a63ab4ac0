package fetch_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/fetch"
	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/decode"
	"github.com/adamwoolhether/fetch/internal/httpbin"
)

func useServer(t *testing.T, opts ...client.Option) string {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(httpbin.New(httpbin.WithLogger(log)))
	t.Cleanup(srv.Close)

	c, err := fetch.NewClient(append([]client.Option{client.WithBaseURL(srv.URL), client.WithLogger(log)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	fetch.SetDefault(c)
	t.Cleanup(func() { fetch.SetDefault(nil) })

	return srv.URL
}

func TestHelpers(t *testing.T) {
	useServer(t, client.WithBaseHeaders(map[string]string{"X-Base": "1"}), client.WithBaseParams(client.P("key", "abc")))

	testCases := []struct {
		name     string
		call     func(t *testing.T) (*client.Response, error)
		wantArgs url.Values
		wantForm url.Values
		method   string
	}{
		{
			name: "get",
			call: func(t *testing.T) (*client.Response, error) {
				return fetch.Get(t.Context(), "/get", client.P("a", "1"))
			},
			method:   http.MethodGet,
			wantArgs: url.Values{"key": {"abc"}, "a": {"1"}},
		},
		{
			name: "delete",
			call: func(t *testing.T) (*client.Response, error) {
				return fetch.Delete(t.Context(), "/delete", client.P("id", "9"))
			},
			method:   http.MethodDelete,
			wantArgs: url.Values{"key": {"abc"}, "id": {"9"}},
		},
		{
			name: "post",
			call: func(t *testing.T) (*client.Response, error) {
				return fetch.Post(t.Context(), "/post", client.P("name", "alice"))
			},
			method:   http.MethodPost,
			wantArgs: url.Values{},
			wantForm: url.Values{"key": {"abc"}, "name": {"alice"}},
		},
		{
			name: "put",
			call: func(t *testing.T) (*client.Response, error) {
				return fetch.Put(t.Context(), "/put", client.P("name", "bob"))
			},
			method:   http.MethodPut,
			wantArgs: url.Values{},
			wantForm: url.Values{"key": {"abc"}, "name": {"bob"}},
		},
		{
			name: "patch",
			call: func(t *testing.T) (*client.Response, error) {
				return fetch.Patch(t.Context(), "/patch", client.P("name", "carol"))
			},
			method:   http.MethodPatch,
			wantArgs: url.Values{},
			wantForm: url.Values{"key": {"abc"}, "name": {"carol"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := tc.call(t)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			e, err := decode.JSON[httpbin.Echo]().Decode(bytes.NewReader(resp.Body))
			if err != nil {
				t.Fatalf("decoding echo: %v", err)
			}

			if e.Method != tc.method {
				t.Errorf("method = %s, want %s", e.Method, tc.method)
			}
			if diff := cmp.Diff(tc.wantArgs, e.Args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantForm, e.Form); diff != "" {
				t.Errorf("form mismatch (-want +got):\n%s", diff)
			}
			if e.Headers["X-Base"] != "1" {
				t.Errorf("expected base header, got %v", e.Headers)
			}
		})
	}
}

func TestHead(t *testing.T) {
	useServer(t)

	resp, err := fetch.Head(t.Context(), "/bytes/2048")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.ContentLength != 2048 || len(resp.Body) != 0 {
		t.Errorf("unexpected head response: length %d, body %d", resp.ContentLength, len(resp.Body))
	}
}

func TestAs(t *testing.T) {
	useServer(t)

	_, res := fetch.As(t.Context(), client.Get("/json"), decode.JSON[map[string]httpbin.Slideshow]())
	got, err := res.Get()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if diff := cmp.Diff(httpbin.Sample, got["slideshow"]); diff != "" {
		t.Errorf("fixture mismatch (-want +got):\n%s", diff)
	}

	_, bad := fetch.As(t.Context(), client.Get("::bad"), decode.String())
	if bad.IsSuccess() {
		t.Error("expected a construction failure")
	}
}

func TestDefault_Lazy(t *testing.T) {
	fetch.SetDefault(nil)

	a, b := fetch.Default(), fetch.Default()
	if a == nil || a != b {
		t.Error("expected one lazily built default client")
	}
}
