package httpbin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

const (
	maxBodySize  = 32 << 20
	maxBytes     = 100 << 20
	maxDelay     = 10 * time.Second
	maxRedirects = 20
)

// Echo is the body returned by the method endpoints.
type Echo struct {
	Args    url.Values        `json:"args"`
	Headers map[string]string `json:"headers"`
	Origin  string            `json:"origin"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Form    url.Values        `json:"form,omitempty"`
	Files   map[string]string `json:"files,omitempty"`
	Data    string            `json:"data,omitempty"`
	JSON    any               `json:"json,omitempty"`
}

// Slideshow is the fixture served by /json and /xml.
type Slideshow struct {
	Author string  `json:"author" xml:"author,attr" yaml:"author"`
	Date   string  `json:"date" xml:"date,attr" yaml:"date"`
	Title  string  `json:"title" xml:"title,attr" yaml:"title"`
	Slides []Slide `json:"slides" xml:"slide" yaml:"slides"`
}

// Slide is one entry of a Slideshow.
type Slide struct {
	Title string   `json:"title" xml:"title" yaml:"title"`
	Type  string   `json:"type" xml:"type,attr" yaml:"type"`
	Items []string `json:"items,omitempty" xml:"item" yaml:"items,omitempty"`
}

// Sample is the slideshow served by the fixture endpoints.
var Sample = Slideshow{
	Author: "Yours Truly",
	Date:   "date of publication",
	Title:  "Sample Slide Show",
	Slides: []Slide{
		{Title: "Wake up to WonderWidgets!", Type: "all"},
		{Title: "Overview", Type: "all", Items: []string{"Why WonderWidgets are great", "Who buys WonderWidgets"}},
	},
}

func routes(app *App) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		app.handle(method, "/"+strings.ToLower(method), echo)
	}
	app.handle("", "/anything", echo)
	app.handle("", "/anything/{rest...}", echo)

	app.handle(http.MethodGet, "/headers", headers)
	app.handle(http.MethodGet, "/user-agent", userAgent)
	app.handle(http.MethodGet, "/uuid", newUUID)
	app.handle(http.MethodGet, "/trace", traceID)

	app.handle(http.MethodGet, "/basic-auth/{user}/{passwd}", basicAuth)
	app.handle(http.MethodGet, "/bearer", bearer)
	app.handle("", "/status/{code}", status)
	app.handle(http.MethodGet, "/redirect/{n}", redirect)

	app.handle(http.MethodGet, "/bytes/{n}", randomBytes)
	app.handle(http.MethodGet, "/stream-bytes/{n}", streamBytes)
	app.handle(http.MethodGet, "/drip", drip)
	app.handle("", "/delay/{seconds}", delay)

	app.handle(http.MethodGet, "/json", fixtureJSON)
	app.handle(http.MethodGet, "/xml", fixtureXML)
	app.handle(http.MethodGet, "/yaml", fixtureYAML)
	app.handle(http.MethodGet, "/malformed", malformed)
	app.handle(http.MethodGet, "/gzip", gzipped)
}

func echo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp, err := describe(r)
	if err != nil {
		return err
	}

	return respondJSON(ctx, w, http.StatusOK, resp)
}

// describe builds the Echo for r, consuming its body.
func describe(r *http.Request) (Echo, error) {
	resp := Echo{
		Args:    r.URL.Query(),
		Headers: flatten(r.Header),
		Origin:  origin(r),
		URL:     fullURL(r),
		Method:  r.Method,
	}
	if r.Host != "" {
		resp.Headers["Host"] = r.Host
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return Echo{}, newError(http.StatusBadRequest, fmt.Errorf("parsing form: %w", err))
		}
		resp.Form = r.PostForm

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			return Echo{}, newError(http.StatusBadRequest, fmt.Errorf("parsing multipart form: %w", err))
		}
		resp.Form = url.Values(r.MultipartForm.Value)
		resp.Files = make(map[string]string, len(r.MultipartForm.File))
		for field, fhs := range r.MultipartForm.File {
			f, err := fhs[0].Open()
			if err != nil {
				return Echo{}, fmt.Errorf("opening part %s: %w", field, err)
			}
			b, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return Echo{}, fmt.Errorf("reading part %s: %w", field, err)
			}
			resp.Files[field] = string(b)
		}

	default:
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return Echo{}, newError(http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		}
		resp.Data = string(b)
		if mediaType == "application/json" && len(b) > 0 {
			if err := json.Unmarshal(b, &resp.JSON); err != nil {
				resp.JSON = nil
			}
		}
	}

	return resp, nil
}

func headers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondJSON(ctx, w, http.StatusOK, map[string]map[string]string{"headers": flatten(r.Header)})
}

func userAgent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondJSON(ctx, w, http.StatusOK, map[string]string{"user-agent": r.UserAgent()})
}

func newUUID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondJSON(ctx, w, http.StatusOK, map[string]string{"uuid": uuid.NewString()})
}

func traceID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondJSON(ctx, w, http.StatusOK, map[string]string{"trace_id": GetValues(ctx).TraceID})
}

func basicAuth(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	wantUser, wantPass := r.PathValue("user"), r.PathValue("passwd")

	user, pass, ok := r.BasicAuth()
	if !ok || user != wantUser || pass != wantPass {
		w.Header().Set("WWW-Authenticate", `Basic realm="Fake Realm"`)
		return respondJSON(ctx, w, http.StatusUnauthorized, map[string]any{"authenticated": false})
	}

	return respondJSON(ctx, w, http.StatusOK, map[string]any{"authenticated": true, "user": user})
}

func bearer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		return respondJSON(ctx, w, http.StatusUnauthorized, map[string]any{"authenticated": false})
	}

	return respondJSON(ctx, w, http.StatusOK, map[string]any{"authenticated": true, "token": token})
}

func status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	code, err := pathInt(r, "code")
	if err != nil {
		return err
	}
	if code < 200 || code > 599 {
		return newError(http.StatusBadRequest, fmt.Errorf("invalid status code %d", code))
	}

	body := []byte(http.StatusText(code))
	if code == http.StatusNoContent || code == http.StatusNotModified {
		body = nil
	}

	return respondRaw(ctx, w, code, "text/plain; charset=utf-8", body)
}

func redirect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := pathInt(r, "n")
	if err != nil {
		return err
	}
	if n < 1 || n > maxRedirects {
		return newError(http.StatusBadRequest, fmt.Errorf("redirect count must be within 1..%d", maxRedirects))
	}

	target := "/get"
	if n > 1 {
		target = fmt.Sprintf("/redirect/%d", n-1)
	}

	setStatusCode(ctx, http.StatusFound)
	http.Redirect(w, r, target, http.StatusFound)

	return nil
}

// randomBytes serves n pseudo-random bytes, reproducible through ?seed.
func randomBytes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := byteCount(r)
	if err != nil {
		return err
	}
	seed, err := querySeed(r)
	if err != nil {
		return err
	}

	return respondRaw(ctx, w, http.StatusOK, "application/octet-stream", Bytes(n, seed))
}

// streamBytes serves n bytes with chunked encoding, flushing every
// chunk_size bytes.
func streamBytes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := byteCount(r)
	if err != nil {
		return err
	}
	seed, err := querySeed(r)
	if err != nil {
		return err
	}

	chunk := 10 * 1024
	if v := r.URL.Query().Get("chunk_size"); v != "" {
		if chunk, err = strconv.Atoi(v); err != nil || chunk < 1 {
			return newError(http.StatusBadRequest, fmt.Errorf("invalid chunk_size %q", v))
		}
	}

	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	data := Bytes(n, seed)
	flusher, _ := w.(http.Flusher)
	for len(data) > 0 {
		size := min(chunk, len(data))
		if _, err := w.Write(data[:size]); err != nil {
			return nil
		}
		if flusher != nil {
			flusher.Flush()
		}
		data = data[size:]
	}

	return nil
}

// drip serves numbytes '*' bytes spread evenly over duration seconds,
// after an initial delay. The Content-Length is declared up front.
func drip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	numBytes := 10
	if v := q.Get("numbytes"); v != "" {
		var err error
		if numBytes, err = strconv.Atoi(v); err != nil || numBytes < 1 || numBytes > maxBytes {
			return newError(http.StatusBadRequest, fmt.Errorf("invalid numbytes %q", v))
		}
	}
	duration, err := querySeconds(q, "duration", 2*time.Second)
	if err != nil {
		return err
	}
	wait, err := querySeconds(q, "delay", 0)
	if err != nil {
		return err
	}

	if !sleep(ctx, wait) {
		return nil
	}

	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(numBytes))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	pause := duration / time.Duration(numBytes)
	for range numBytes {
		if _, err := w.Write([]byte{'*'}); err != nil {
			return nil
		}
		if flusher != nil {
			flusher.Flush()
		}
		if !sleep(ctx, pause) {
			return nil
		}
	}

	return nil
}

func delay(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	secs, err := strconv.ParseFloat(r.PathValue("seconds"), 64)
	if err != nil || secs < 0 {
		return newError(http.StatusBadRequest, fmt.Errorf("invalid delay %q", r.PathValue("seconds")))
	}

	if !sleep(ctx, min(time.Duration(secs*float64(time.Second)), maxDelay)) {
		return nil
	}

	return echo(ctx, w, r)
}

func fixtureJSON(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondJSON(ctx, w, http.StatusOK, map[string]Slideshow{"slideshow": Sample})
}

func fixtureXML(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	body, err := SampleXML()
	if err != nil {
		return err
	}

	return respondRaw(ctx, w, http.StatusOK, "application/xml", body)
}

func fixtureYAML(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	body, err := SampleYAML()
	if err != nil {
		return err
	}

	return respondRaw(ctx, w, http.StatusOK, "application/yaml", body)
}

func malformed(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondRaw(ctx, w, http.StatusOK, "application/json", []byte(`{"slideshow": {"author": "Yours Truly",`))
}

func gzipped(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp, err := describe(r)
	if err != nil {
		return err
	}

	body, err := json.Marshal(struct {
		Echo
		Gzipped bool `json:"gzipped"`
	}{Echo: resp, Gzipped: true})
	if err != nil {
		return err
	}

	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(http.StatusOK)

	zw := gzip.NewWriter(w)
	if _, err := zw.Write(body); err != nil {
		return fmt.Errorf("compressing body: %w", err)
	}

	return zw.Close()
}

// Bytes returns n pseudo-random bytes derived from seed.
func Bytes(n int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seed))

	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}

	return b
}

func byteCount(r *http.Request) (int, error) {
	n, err := pathInt(r, "n")
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxBytes {
		return 0, newError(http.StatusBadRequest, fmt.Errorf("byte count must be within 0..%d", maxBytes))
	}

	return n, nil
}

func pathInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(key))
	if err != nil {
		return 0, newError(http.StatusBadRequest, fmt.Errorf("path param[%s] must be integer: %w", key, err))
	}

	return v, nil
}

func querySeed(r *http.Request) (uint64, error) {
	v := r.URL.Query().Get("seed")
	if v == "" {
		return 0, nil
	}

	seed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, newError(http.StatusBadRequest, fmt.Errorf("query param[seed] must be integer: %w", err))
	}

	return seed, nil
}

func querySeconds(q url.Values, key string, fallback time.Duration) (time.Duration, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}

	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0, newError(http.StatusBadRequest, fmt.Errorf("query param[%s] must be a non-negative number", key))
	}

	return min(time.Duration(secs*float64(time.Second)), maxDelay), nil
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ",")
	}
	return out
}

func origin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
