package cli

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/fetch/client"
)

func requestCmd(g *globals, name, method string, withBody bool) *cobra.Command {
	var (
		data     string
		jsonBody bool
	)

	cmd := &cobra.Command{
		Use:   name + " URL",
		Short: "Send a " + method + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := g.logger(cmd.ErrOrStderr())

			b, err := g.decorate(client.NewRequest(method, args[0]))
			if err != nil {
				return err
			}
			if data != "" {
				body, err := readData(data)
				if err != nil {
					return err
				}
				b = b.Body(body)
				if jsonBody {
					b = b.ContentType("application/json")
				}
			}

			c, err := g.client(log)
			if err != nil {
				return err
			}

			req, err := c.Prepare(b)
			if err != nil {
				return err
			}
			if g.curl {
				fmt.Fprintln(cmd.OutOrStdout(), req.Curl())
				return nil
			}

			resp, err := c.Execute(cmd.Context(), req)
			if resp != nil {
				printResponse(cmd, g, method, resp)
			}

			return err
		},
	}

	if withBody {
		cmd.Flags().StringVarP(&data, "data", "d", "", "request body, or @file to read it from a file")
		cmd.Flags().BoolVar(&jsonBody, "json", false, "send the body as application/json")
	}

	return cmd
}

// readData returns s, or the contents of the file it names when it starts
// with "@".
func readData(s string) ([]byte, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return []byte(s), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return b, nil
}

// printResponse writes the body to stdout. The status line and headers go
// to stdout for HEAD requests and to stderr in verbose mode.
func printResponse(cmd *cobra.Command, g *globals, method string, resp *client.Response) {
	switch {
	case method == http.MethodHead:
		writeHead(cmd.OutOrStdout(), resp)
	case g.verbose:
		writeHead(cmd.ErrOrStderr(), resp)
	}

	if len(resp.Body) > 0 {
		out := cmd.OutOrStdout()
		out.Write(resp.Body)
		if resp.Body[len(resp.Body)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}
}

func writeHead(w io.Writer, resp *client.Response) {
	fmt.Fprintf(w, "HTTP %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	for _, k := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "%s: %s\n", k, v)
		}
	}
}
