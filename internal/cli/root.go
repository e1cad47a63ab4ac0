// Package cli implements the fetch command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// SetVersion sets the version info reported by --version.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}

// globals holds the flags shared by every request command.
type globals struct {
	config     string
	timeout    time.Duration
	verbose    bool
	headers    []string
	params     []string
	user       string
	curl       bool
	compressed bool
}

// NewRoot builds the fetch command tree writing to stdout and stderr.
func NewRoot(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "fetch",
		Short: "Make HTTP requests from the command line",
		Long: `fetch sends HTTP requests and streams transfers to and from disk.

Client defaults are read from a TOML file (--config) and FETCH_*
environment variables, then overridden by flags.

Get started:
  fetch get https://httpbin.org/get -p q=go
  fetch post https://httpbin.org/post -p name=gopher
  fetch download https://httpbin.org/bytes/1024 -o out.bin
  fetch upload https://httpbin.org/post ./notes.txt
  fetch serve --addr 127.0.0.1:8080`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "TOML settings file")
	pf.DurationVarP(&g.timeout, "timeout", "t", 0, "per-request timeout (e.g. 10s)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log exchanges and print response headers")
	pf.StringArrayVarP(&g.headers, "header", "H", nil, `request header "Key: Value" (repeatable)`)
	pf.StringArrayVarP(&g.params, "param", "p", nil, "parameter key=value (repeatable)")
	pf.StringVarP(&g.user, "user", "u", "", "basic auth credentials user:password")
	pf.BoolVar(&g.curl, "curl", false, "print the equivalent curl command instead of sending")
	pf.BoolVar(&g.compressed, "compressed", false, "request and decode compressed responses")

	root.AddCommand(
		requestCmd(g, "get", "GET", false),
		requestCmd(g, "head", "HEAD", false),
		requestCmd(g, "delete", "DELETE", false),
		requestCmd(g, "post", "POST", true),
		requestCmd(g, "put", "PUT", true),
		requestCmd(g, "patch", "PATCH", true),
		downloadCmd(g),
		uploadCmd(g),
		serveCmd(),
	)

	return root
}

// Execute runs the command tree against the process's standard streams.
// Cancelling ctx interrupts in-flight transfers and stops the server.
func Execute(ctx context.Context) error {
	return NewRoot(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func (g *globals) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// client builds a Client from the settings file, the environment and the
// command line, in increasing order of precedence.
func (g *globals) client(log *slog.Logger) (*client.Client, error) {
	settings, err := config.Load(g.config, config.DefaultPrefix)
	if err != nil {
		return nil, err
	}
	if g.verbose {
		settings.LogRequests = true
	}

	opts, err := settings.Options(log)
	if err != nil {
		return nil, err
	}
	if g.timeout > 0 {
		opts = append(opts, client.WithTimeout(g.timeout))
	}
	if g.compressed && !settings.Compression {
		opts = append(opts, client.WithCompression())
	}

	return client.Build(opts...)
}

// decorate applies the header, param and auth flags to b.
func (g *globals) decorate(b client.Builder) (client.Builder, error) {
	for _, h := range g.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return b, fmt.Errorf("header %q is not in Key: Value form", h)
		}
		b = b.Header(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	for _, p := range g.params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return b, fmt.Errorf("param %q is not in key=value form", p)
		}
		b = b.Param(k, v)
	}

	if g.user != "" {
		user, password, _ := strings.Cut(g.user, ":")
		b = b.BasicAuth(user, password)
	}

	return b, nil
}
