//go:build integration

package client_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/decode"
)

func TestIntegration_Download_RemoteSmallFile(t *testing.T) {
	c, err := client.Build(client.WithCompression())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	req, err := c.Prepare(client.Get("https://go.dev/VERSION", client.P("m", "text")))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "VERSION")
	if _, err := c.Download(t.Context(), req, destPath); err != nil {
		t.Fatalf("download failed: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if !strings.HasPrefix(string(got), "go") {
		t.Errorf("unexpected content %q", got)
	}
}

func TestIntegration_Do_RemoteText(t *testing.T) {
	c, err := client.Build(client.WithBaseURL("https://go.dev"))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	req, err := c.Prepare(client.Get("/VERSION", client.P("m", "text")))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	_, res := client.Do(t.Context(), c, req, decode.String())
	v, err := res.Get()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !strings.HasPrefix(v, "go") {
		t.Errorf("unexpected content %q", v)
	}
}
