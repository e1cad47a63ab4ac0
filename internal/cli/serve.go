package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/fetch/internal/httpbin"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		drain   time.Duration
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local httpbin-compatible server",
		Long: `Run a local httpbin-compatible server to try requests against.
It stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			srv := httpbin.NewServer(httpbin.New(httpbin.WithLogger(log)),
				httpbin.WithAddr(addr),
				httpbin.WithShutdownTimeout(drain),
				httpbin.WithServerLogger(log),
			)

			return srv.Run(cmd.Context(), func(bound string) {
				fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", bound)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().DurationVar(&drain, "shutdown-timeout", 10*time.Second, "how long to drain in-flight requests")
	cmd.Flags().BoolVar(&verbose, "debug", false, "log every request")

	return cmd
}
