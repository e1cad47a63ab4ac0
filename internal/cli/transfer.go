package cli

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/client/upload"
)

func downloadCmd(g *globals) *cobra.Command {
	var (
		output       string
		checksum     string
		skipExisting bool
		progress     bool
	)

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Stream a response body to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("an output file is required (-o)")
			}

			b, err := g.decorate(client.Get(args[0]))
			if err != nil {
				return err
			}

			c, err := g.client(g.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			req, err := c.Prepare(b)
			if err != nil {
				return err
			}
			if g.curl {
				fmt.Fprintln(cmd.OutOrStdout(), req.Curl()+" -o "+output)
				return nil
			}

			var opts []client.DownloadOption
			if checksum != "" {
				opts = append(opts, client.WithChecksum(sha256.New(), checksum))
			}
			if skipExisting {
				opts = append(opts, client.WithSkipExisting())
			}
			if progress {
				opts = append(opts, client.WithProgressLog())
			}

			resp, err := c.Download(cmd.Context(), req, output, opts...)
			if err != nil {
				return err
			}
			if resp == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s exists, skipped\n", output)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes in %s\n", output, resp.Size, resp.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file")
	cmd.Flags().StringVar(&checksum, "sha256", "", "expected hex SHA-256 of the file")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "do nothing when the destination exists")
	cmd.Flags().BoolVar(&progress, "progress", false, "log download progress")

	return cmd
}

func uploadCmd(g *globals) *cobra.Command {
	var (
		method string
		field  string
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "upload URL FILE",
		Short: "Stream a file as the request body",
		Long: `Stream FILE as the request body. With --field the file is sent as a
multipart/form-data part named by the flag, alongside any -F fields.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := upload.File(args[1])
			if field != "" {
				params := make([]client.Param, 0, len(fields))
				for _, f := range fields {
					k, v, ok := strings.Cut(f, "=")
					if !ok || k == "" {
						return fmt.Errorf("field %q is not in key=value form", f)
					}
					params = append(params, client.P(k, v))
				}
				source = upload.Multipart(field, args[1], params...)
			} else if len(fields) > 0 {
				return errors.New("-F fields require --field")
			}

			b, err := g.decorate(client.NewRequest(strings.ToUpper(method), args[0]).Source(source))
			if err != nil {
				return err
			}

			c, err := g.client(g.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			req, err := c.Prepare(b)
			if err != nil {
				return err
			}
			if g.curl {
				fmt.Fprintln(cmd.OutOrStdout(), req.Curl()+" < "+args[1])
				return nil
			}

			resp, err := c.Execute(cmd.Context(), req)
			if resp != nil {
				printResponse(cmd, g, req.Method(), resp)
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPost, "request method")
	cmd.Flags().StringVar(&field, "field", "", "send the file as a multipart part with this name")
	cmd.Flags().StringArrayVarP(&fields, "form", "F", nil, "extra multipart field key=value (repeatable)")

	return cmd
}
