package fetch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/adamwoolhether/fetch"
	"github.com/adamwoolhether/fetch/client"
	"github.com/adamwoolhether/fetch/internal/httpbin"
)

func ExampleGet() {
	srv := httptest.NewServer(httpbin.New(httpbin.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))))
	defer srv.Close()

	c, err := fetch.NewClient(client.WithBaseURL(srv.URL))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fetch.SetDefault(c)
	defer fetch.SetDefault(nil)

	resp, err := fetch.Get(context.Background(), "/status/418")
	kind, _ := client.KindOf(err)
	fmt.Println(resp.StatusCode, kind)
	// Output: 418 bad_status
}
