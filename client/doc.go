// Package client provides the core of the configurable HTTP client built
// on [net/http]: immutable requests, a streaming transfer engine with
// cooperative cancellation, and an interceptor chain.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithBaseURL("https://api.example.com"),
//		client.WithBaseHeaders(map[string]string{"Accept": "application/json"}),
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// Describe a request with a [Builder], prepare it against the client's
// defaults and execute it, decoding the body with a [decode.Decoder]:
//
//	req, err := c.Prepare(client.Get("/v1/resource", client.P("page", "2")))
//	resp, res := client.Do(ctx, c, req, decode.JSON[Resource]())
//	v, err := res.Get()
//
// Every failure is a [*TransferError] whose [Kind] tells connect failures,
// timeouts, interrupts, bad statuses and decode failures apart.
//
// # Cancellation and Progress
//
// A [Token] aborts one in-flight execution. The engine checks it between
// chunks, so progress callbacks and cancellation share one granularity:
//
//	tok := client.NewToken().OnInterrupt(func(r *client.Request) { ... })
//	resp, err := c.Execute(ctx, req,
//		client.WithToken(tok),
//		client.WithProgress(func(n, total int64) { ... }),
//	)
//
// # Downloading Files
//
// Stream a response body directly to disk with optional checksum
// verification and progress logging:
//
//	resp, err := c.Download(ctx, req, "/tmp/file.bin",
//		client.WithChecksum(sha256.New(), expectedHex),
//		client.WithProgressLog(),
//	)
//
// For asynchronous execution see the
// [github.com/adamwoolhether/fetch/client/async] package, and for ready
// made interceptors the
// [github.com/adamwoolhether/fetch/client/interceptor] package.
package client
