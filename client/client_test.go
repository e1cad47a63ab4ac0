package client_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/decode"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, handler http.Handler, opts ...client.Option) *client.Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	opts = append([]client.Option{client.WithBaseURL(ts.URL), client.WithLogger(discardLogger())}, opts...)
	c, err := client.Build(opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return c
}

func send(t *testing.T, c *client.Client, b client.Builder, opts ...client.CallOption) (*client.Response, error) {
	t.Helper()

	req, err := c.Prepare(b)
	if err != nil {
		t.Fatalf("failed to prepare request: %v", err)
	}

	return c.Execute(t.Context(), req, opts...)
}

// slowBody streams size bytes in 1KB chunks with a pause between them.
func slowBody(size int, pause time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		w.WriteHeader(http.StatusOK)
		chunk := bytes.Repeat([]byte("s"), 1024)
		for sent := 0; sent < size; sent += len(chunk) {
			if _, err := w.Write(chunk[:min(len(chunk), size-sent)]); err != nil {
				return
			}
			w.(http.Flusher).Flush()
			time.Sleep(pause)
		}
	}
}

func TestBuild_InvalidOptions(t *testing.T) {
	testCases := map[string]client.Option{
		"nil client":       client.WithClient(nil),
		"nil transport":    client.WithTransport(nil),
		"negative timeout": client.WithTimeout(-1),
		"zero chunk":       client.WithChunkSize(0),
		"relative base":    client.WithBaseURL("/v1"),
		"nil interceptor":  client.WithInterceptors(nil),
	}

	for name, opt := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := client.Build(opt); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "TestUserAgent/1.0"

	var got string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}), client.WithUserAgent(expectedUA))

	if _, err := send(t, c, client.Get("/")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != expectedUA {
		t.Errorf("expected User-Agent %q, got %q", expectedUA, got)
	}
}

func TestClient_TransportPrecedence(t *testing.T) {
	var providedCalled, explicitCalled bool
	provided := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		providedCalled = true
		return http.DefaultTransport.RoundTrip(r)
	})
	explicit := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		explicitCalled = true
		return http.DefaultTransport.RoundTrip(r)
	})

	testCases := []struct {
		name         string
		opts         []client.Option
		wantProvided bool
		wantExplicit bool
	}{
		{name: "client transport", opts: []client.Option{client.WithClient(&http.Client{Transport: provided})}, wantProvided: true},
		{name: "explicit transport", opts: []client.Option{client.WithTransport(explicit)}, wantExplicit: true},
		{name: "explicit wins", opts: []client.Option{client.WithClient(&http.Client{Transport: provided}), client.WithTransport(explicit)}, wantExplicit: true},
		{name: "explicit wins reversed", opts: []client.Option{client.WithTransport(explicit), client.WithClient(&http.Client{Transport: provided})}, wantExplicit: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			providedCalled, explicitCalled = false, false

			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), tc.opts...)
			if _, err := send(t, c, client.Get("/")); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if providedCalled != tc.wantProvided {
				t.Errorf("provided transport called = %v, want %v", providedCalled, tc.wantProvided)
			}
			if explicitCalled != tc.wantExplicit {
				t.Errorf("explicit transport called = %v, want %v", explicitCalled, tc.wantExplicit)
			}
		})
	}
}

func TestClient_WithClientAndWithTimeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	})

	orders := [][]client.Option{
		{client.WithClient(&http.Client{Timeout: time.Millisecond}), client.WithTimeout(5 * time.Second)},
		{client.WithTimeout(5 * time.Second), client.WithClient(&http.Client{Timeout: time.Millisecond})},
	}

	for i, opts := range orders {
		c := newClient(t, handler, opts...)
		if _, err := send(t, c, client.Get("/")); err != nil {
			t.Errorf("order %d: expected no error (WithTimeout should win), got %v", i, err)
		}
	}
}

func TestClient_WithNoFollowRedirects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		w.Write([]byte("target"))
	})

	follow := newClient(t, handler)
	resp, err := send(t, follow, client.Get("/redirect"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(resp.Body) != "target" {
		t.Errorf("expected redirect to be followed, got %q", resp.Body)
	}

	noFollow := newClient(t, handler, client.WithNoFollowRedirects())
	_, err = send(t, noFollow, client.Get("/redirect"))

	var te *client.TransferError
	if !errors.As(err, &te) || te.StatusCode != http.StatusFound {
		t.Errorf("expected a 302 bad status, got %v", err)
	}
}

func TestClient_WithCompression(t *testing.T) {
	want := strings.Repeat("compress me ", 512)

	testCases := []struct {
		name     string
		encoding string
		encode   func(t *testing.T, s string) []byte
	}{
		{
			name:     "gzip",
			encoding: "gzip",
			encode: func(t *testing.T, s string) []byte {
				var buf bytes.Buffer
				zw := gzip.NewWriter(&buf)
				zw.Write([]byte(s))
				if err := zw.Close(); err != nil {
					t.Fatal(err)
				}
				return buf.Bytes()
			},
		},
		{
			name:     "zstd",
			encoding: "zstd",
			encode: func(t *testing.T, s string) []byte {
				enc, err := zstd.NewWriter(nil)
				if err != nil {
					t.Fatal(err)
				}
				defer enc.Close()
				return enc.EncodeAll([]byte(s), nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var accept string
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				accept = r.Header.Get("Accept-Encoding")
				w.Header().Set("Content-Encoding", tc.encoding)
				w.Write(tc.encode(t, want))
			}), client.WithCompression())

			resp, err := send(t, c, client.Get("/"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if accept != "zstd, gzip" {
				t.Errorf("unexpected Accept-Encoding %q", accept)
			}
			if string(resp.Body) != want {
				t.Errorf("body not decoded, got %d bytes", len(resp.Body))
			}
			if resp.ContentLength != client.UnknownLength {
				t.Errorf("expected unknown length after decoding, got %d", resp.ContentLength)
			}
		})
	}
}

func TestClient_BasicAuth(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "passwd" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"authenticated":false}`))
			return
		}
		w.Write([]byte(`{"authenticated":true}`))
	})
	c := newClient(t, handler)

	resp, err := send(t, c, client.Get("/basic-auth").BasicAuth("user", "passwd"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(resp.Body) != `{"authenticated":true}` {
		t.Errorf("unexpected body %q", resp.Body)
	}

	resp, err = send(t, c, client.Get("/basic-auth").BasicAuth("user", "wrong"))
	if !errors.Is(err, client.ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
	if !errors.Is(err, client.ErrUnexpectedStatusCode) {
		t.Errorf("expected ErrUnexpectedStatusCode, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the 401 response alongside the error, got %+v", resp)
	}
	if got := string(client.ErrorPayload(err)); got != `{"authenticated":false}` {
		t.Errorf("expected server body in error, got %q", got)
	}
}

func TestClient_BadStatusBodyCapped(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(bytes.Repeat([]byte("e"), 200<<10))
	}))

	_, err := send(t, c, client.Get("/"))
	if kind, _ := client.KindOf(err); kind != client.KindBadStatus {
		t.Fatalf("expected bad_status, got %v", err)
	}
	if n := len(client.ErrorPayload(err)); n != 64<<10 {
		t.Errorf("expected error body capped at 64KB, got %d", n)
	}
}

func TestClient_FailureKinds(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	closedAddr := l.Addr().String()
	l.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	testCases := []struct {
		name    string
		builder client.Builder
		want    client.Kind
	}{
		{name: "connect failure", builder: client.Get("http://" + closedAddr + "/"), want: client.KindConnectFailure},
		{name: "unknown host", builder: client.Get("http://fetch-test.invalid/"), want: client.KindConnectFailure},
		{name: "timeout", builder: client.Get(slow.URL).Timeout(50 * time.Millisecond), want: client.KindTimeout},
	}

	c, err := client.Build(client.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := send(t, c, tc.builder)
			kind, ok := client.KindOf(err)
			if !ok || kind != tc.want {
				t.Errorf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestClient_ContentLengthMismatch(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("hijacking unsupported")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.Close()
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort")
		buf.Flush()
	}))

	_, err := send(t, c, client.Get("/"))
	if kind, _ := client.KindOf(err); kind != client.KindIOFailure {
		t.Errorf("expected io_failure, got %v", err)
	}
}

func TestClient_HeadWithContentLength(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
	}))

	resp, err := send(t, c, client.Head("/"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.ContentLength != 1000 || resp.Size != 0 {
		t.Errorf("unexpected head response %+v", resp)
	}
}

func TestClient_Progress(t *testing.T) {
	testCases := []struct {
		name      string
		handler   http.HandlerFunc
		wantTotal int64
	}{
		{
			name: "known length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "102400")
				w.Write(bytes.Repeat([]byte("p"), 102400))
			},
			wantTotal: 102400,
		},
		{
			name: "chunked",
			handler: func(w http.ResponseWriter, r *http.Request) {
				for range 100 {
					w.Write(bytes.Repeat([]byte("p"), 1024))
					w.(http.Flusher).Flush()
				}
			},
			wantTotal: client.UnknownLength,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, tc.handler, client.WithChunkSize(4096))

			var samples []int64
			resp, err := send(t, c, client.Get("/"), client.WithProgress(func(n, total int64) {
				if total != tc.wantTotal {
					t.Errorf("expected total %d, got %d", tc.wantTotal, total)
				}
				samples = append(samples, n)
			}))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(samples) < 2 {
				t.Fatalf("expected several samples, got %v", samples)
			}
			for i := 1; i < len(samples); i++ {
				if samples[i] < samples[i-1] {
					t.Fatalf("progress decreased at %d: %v", i, samples)
				}
			}
			if last := samples[len(samples)-1]; last != 102400 || resp.Size != 102400 {
				t.Errorf("expected final sample and size 102400, got %d and %d", last, resp.Size)
			}
		})
	}
}

func TestClient_CancelBeforeExecute(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	var interrupts atomic.Int32
	tok := client.NewToken().OnInterrupt(func(*client.Request) { interrupts.Add(1) })
	tok.Cancel()

	_, err := send(t, c, client.Get("/"), client.WithToken(tok))
	if !errors.Is(err, client.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if hits.Load() != 0 {
		t.Error("no request should reach the server")
	}
	if interrupts.Load() != 1 {
		t.Errorf("expected one interrupt callback, got %d", interrupts.Load())
	}
	if tok.State() != client.Terminated {
		t.Errorf("expected terminated, got %s", tok.State())
	}
}

func TestClient_CancelMidTransfer(t *testing.T) {
	c := newClient(t, slowBody(1<<20, 5*time.Millisecond), client.WithChunkSize(1024))

	var (
		interrupts atomic.Int32
		gotReq     *client.Request
	)
	tok := client.NewToken().OnInterrupt(func(r *client.Request) {
		interrupts.Add(1)
		gotReq = r
	})

	var (
		last int64
		once sync.Once
	)
	_, err := send(t, c, client.Get("/stream"), client.WithToken(tok), client.WithProgress(func(n, total int64) {
		last = n
		if n >= 4096 {
			once.Do(tok.Cancel)
		}
	}))

	if kind, _ := client.KindOf(err); kind != client.KindInterrupted {
		t.Fatalf("expected interrupted, got %v", err)
	}
	if interrupts.Load() != 1 {
		t.Errorf("expected one interrupt callback, got %d", interrupts.Load())
	}
	if gotReq == nil || gotReq.URL().Path != "/stream" {
		t.Errorf("callback should receive the aborted request, got %v", gotReq)
	}
	if last >= 1<<20 {
		t.Error("transfer should stop before completing")
	}

	select {
	case <-tok.Done():
	default:
		t.Error("token should be terminated")
	}
}

func TestClient_CancelDuringUpload(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
	}), client.WithChunkSize(1024))

	var interrupts atomic.Int32
	tok := client.NewToken().OnInterrupt(func(*client.Request) { interrupts.Add(1) })

	const size = 1 << 20
	source := func(*client.Request) (*client.Payload, error) {
		return &client.Payload{Reader: bytes.NewReader(make([]byte, size)), Size: size}, nil
	}

	var (
		last atomic.Int64
		once sync.Once
	)
	_, err := send(t, c, client.Put("/upload").Source(source), client.WithToken(tok), client.WithUploadProgress(func(n, total int64) {
		last.Store(n)
		if n >= 8192 {
			once.Do(tok.Cancel)
		}
	}))

	if kind, _ := client.KindOf(err); kind != client.KindInterrupted {
		t.Fatalf("expected interrupted, got %v", err)
	}
	if interrupts.Load() != 1 {
		t.Errorf("expected one interrupt callback, got %d", interrupts.Load())
	}
	if last.Load() >= size {
		t.Error("upload should stop before completing")
	}
	if tok.State() != client.Terminated {
		t.Errorf("expected terminated, got %s", tok.State())
	}
}

func TestClient_CancelAfterCompletion(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("done"))
	}))

	var interrupts atomic.Int32
	tok := client.NewToken().OnInterrupt(func(*client.Request) { interrupts.Add(1) })

	resp, err := send(t, c, client.Get("/"), client.WithToken(tok))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tok.Cancel()

	if string(resp.Body) != "done" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if interrupts.Load() != 0 {
		t.Error("cancel after completion must not fire the callback")
	}
	if tok.State() != client.Terminated {
		t.Errorf("expected terminated, got %s", tok.State())
	}
}

func TestClient_TokenReuse(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tok := client.NewToken()
	if _, err := send(t, c, client.Get("/"), client.WithToken(tok)); err != nil {
		t.Fatalf("first execution: %v", err)
	}

	_, err := send(t, c, client.Get("/"), client.WithToken(tok))
	if !errors.Is(err, client.ErrTokenSpent) {
		t.Errorf("expected ErrTokenSpent, got %v", err)
	}
}

func TestClient_CancelBlockedOnHeaders(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))

	tok := client.NewToken()
	time.AfterFunc(50*time.Millisecond, tok.Cancel)

	start := time.Now()
	_, err := send(t, c, client.Get("/"), client.WithToken(tok))
	if kind, _ := client.KindOf(err); kind != client.KindInterrupted {
		t.Fatalf("expected interrupted, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancel should abort a blocked request promptly")
	}
}

func TestDo_Decode(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"name":"alice","age":30}`))
		case "/malformed":
			w.Write([]byte(`{"name":"alice",`))
		}
	}))

	req, err := c.Prepare(client.Get("/ok"))
	if err != nil {
		t.Fatal(err)
	}
	_, res := client.Do(t.Context(), c, req, decode.JSON[user]())
	got, err := res.Get()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if diff := cmp.Diff(user{Name: "alice", Age: 30}, got); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}

	req, err = c.Prepare(client.Get("/malformed"))
	if err != nil {
		t.Fatal(err)
	}
	resp, res := client.Do(t.Context(), c, req, decode.JSON[user]())
	if kind, _ := client.KindOf(res.Err()); kind != client.KindDecodeFailure {
		t.Fatalf("expected decode_failure, got %v", res.Err())
	}
	if got := string(client.ErrorPayload(res.Err())); got != `{"name":"alice",` {
		t.Errorf("expected raw bytes in failure, got %q", got)
	}
	if resp == nil || resp.StatusCode != http.StatusOK {
		t.Errorf("expected the raw response alongside the failure, got %+v", resp)
	}
}

func TestClient_InterceptorOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		trace []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		trace = append(trace, s)
	}

	named := func(name string) client.Interceptor {
		return func(next client.Executor) client.Executor {
			return func(ctx context.Context, x *client.Exchange) (*client.Response, error) {
				record(name + " before")
				x = x.WithRequest(x.Request.WithHeader("X-Seen", name))
				resp, err := next(ctx, x)
				record(name + " after")
				return resp, err
			}
		}
	}

	var seen string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Seen")
		record("server")
	}), client.WithInterceptors(named("outer"), named("inner")))

	if _, err := send(t, c, client.Get("/")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"outer before", "inner before", "server", "inner after", "outer after"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if seen != "inner" {
		t.Errorf("expected the innermost header rewrite to reach the server, got %q", seen)
	}
}

func TestClient_ConcurrentExecute(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(r.URL.Query().Get("i")))
	}), client.WithBaseHeaders(map[string]string{"Accept": "text/plain"}))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			want := strconv.Itoa(i)
			req, err := c.Prepare(client.Get("/", client.P("i", want)))
			if err != nil {
				t.Errorf("request %d: %v", i, err)
				return
			}
			resp, err := c.Execute(t.Context(), req)
			if err != nil {
				t.Errorf("request %d: %v", i, err)
				return
			}
			if string(resp.Body) != want {
				t.Errorf("request %d: got body %q", i, resp.Body)
			}
		})
	}
	wg.Wait()

	if hits.Load() != 20 {
		t.Errorf("expected 20 hits, got %d", hits.Load())
	}
}
