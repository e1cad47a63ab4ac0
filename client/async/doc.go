// Package async runs client requests off the calling goroutine and
// delivers their decoded results through a callback, a channel or an
// observable value.
//
// Every adapter returns immediately with a [Handle]. Execution and
// decoding happen on a worker goroutine, optionally bounded by a [Pool];
// the result is then handed to a [Dispatcher] exactly once:
//
//	loop := async.NewLoop(16)
//	defer loop.Close()
//
//	h := async.Callback(ctx, c, req, decode.JSON[Photo](),
//		func(req *client.Request, resp *client.Response, res result.Result[Photo]) {
//			// runs on the loop goroutine
//		},
//		async.On(loop),
//	)
//	h.Cancel()
package async
