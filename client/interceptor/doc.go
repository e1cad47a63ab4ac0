// Package interceptor provides ready-made [client.Interceptor]s.
//
// Interceptors are registered on a client with [client.WithInterceptors];
// the first one registered is the outermost and sees the request first:
//
//	throttle, err := interceptor.Throttle(10, 5, nil)
//	retry, err := interceptor.Retry(interceptor.WithMaxRetries(3))
//	c, err := client.Build(client.WithInterceptors(
//		interceptor.Logging(logger),
//		interceptor.RequestID(""),
//		retry,
//		throttle,
//	))
//
// None of them swallow an interrupt or change the [client.Kind] of a
// failure produced further down the chain.
package interceptor
