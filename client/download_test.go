package client_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/fetch/client"
)

func TestClient_Download(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10240)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "102400")
		w.Write(data)
	}))

	req, err := c.Prepare(client.Get("/bytes/102400"))
	if err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "out.bin")

	var last, total int64
	resp, err := c.Download(t.Context(), req, dest, client.WithCallOptions(client.WithProgress(func(n, size int64) {
		last, total = n, size
	})))
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("expected %d bytes on disk, got %d", len(data), len(got))
	}
	if resp.Body != nil {
		t.Error("streamed response should carry no body")
	}
	if resp.Size != 102400 || last != 102400 || total != 102400 {
		t.Errorf("unexpected size %d, last sample %d of %d", resp.Size, last, total)
	}
}

func TestClient_Download_Checksum(t *testing.T) {
	data := []byte("verify this payload")
	sum := sha256.Sum256(data)
	good := hex.EncodeToString(sum[:])

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))

	testCases := []struct {
		name     string
		expected string
		wantErr  error
	}{
		{name: "match", expected: good},
		{name: "mismatch", expected: strings.Repeat("f", 64), wantErr: client.ErrChecksumMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := c.Prepare(client.Get("/file"))
			if err != nil {
				t.Fatal(err)
			}
			dest := filepath.Join(t.TempDir(), "out.bin")

			_, err = c.Download(t.Context(), req, dest, client.WithChecksum(sha256.New(), tc.expected))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			_, statErr := os.Stat(dest)
			if tc.wantErr != nil {
				if kind, _ := client.KindOf(err); kind != client.KindIOFailure {
					t.Errorf("expected io_failure, got %v", err)
				}
				if !errors.Is(statErr, os.ErrNotExist) {
					t.Errorf("destination should not exist, stat err: %v", statErr)
				}
				return
			}
			if statErr != nil {
				t.Errorf("destination should exist, stat err: %v", statErr)
			}
		})
	}
}

func TestClient_Download_SkipExisting(t *testing.T) {
	var hits int
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("new"))
	}))

	dest := filepath.Join(t.TempDir(), "existing.bin")
	if err := os.WriteFile(dest, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	req, err := c.Prepare(client.Get("/file"))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Download(t.Context(), req, dest, client.WithSkipExisting())
	if err != nil || resp != nil {
		t.Fatalf("expected a nil response and error, got %v, %v", resp, err)
	}
	if hits != 0 {
		t.Error("skip existing must not touch the network")
	}
	if got, _ := os.ReadFile(dest); string(got) != "old" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestClient_Download_Failures(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))

	req, err := c.Prepare(client.Get("/file"))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	resp, err := c.Download(t.Context(), req, dest)
	if !errors.Is(err, client.ErrUnexpectedStatusCode) {
		t.Fatalf("expected bad status, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusGone {
		t.Errorf("expected the 410 response, got %+v", resp)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files left behind, found %d", len(entries))
	}

	if _, err := c.Download(t.Context(), req, ""); err == nil {
		t.Error("expected error for empty destPath")
	}
}

func TestClient_Download_CancelMidDownload(t *testing.T) {
	c := newClient(t, slowBody(1<<20, 2*time.Millisecond), client.WithChunkSize(1024))

	req, err := c.Prepare(client.Get("/stream"))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	tok := client.NewToken()
	var once sync.Once
	_, err = c.Download(t.Context(), req, dest, client.WithCallOptions(
		client.WithToken(tok),
		client.WithProgress(func(n, _ int64) {
			if n >= 8192 {
				once.Do(tok.Cancel)
			}
		}),
	))
	if !errors.Is(err, client.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no partial files, found %d", len(entries))
	}
}
