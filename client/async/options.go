package async

import (
	"github.com/adamwoolhether/fetch/client"
)

// Option configures one asynchronous call.
type Option func(*options)

type options struct {
	pool       *Pool
	dispatcher Dispatcher
	token      *client.Token
	call       []client.CallOption
	download   []client.DownloadOption
}

func apply(opts []Option) options {
	o := options{dispatcher: Inline}
	for _, opt := range opts {
		opt(&o)
	}
	if o.token == nil {
		o.token = client.NewToken()
	}
	return o
}

// On redirects delivery of the result to d. A nil d keeps [Inline].
func On(d Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithPool runs the call on p instead of a dedicated goroutine.
func WithPool(p *Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithToken uses t for the call instead of a fresh token.
func WithToken(t *client.Token) Option {
	return func(o *options) {
		o.token = t
	}
}

// WithCallOptions forwards execution options such as progress callbacks
// to [client.Client.Execute]. A token passed here is overridden by the
// call's own token; use [WithToken] instead.
func WithCallOptions(opts ...client.CallOption) Option {
	return func(o *options) {
		o.call = append(o.call, opts...)
	}
}

// WithDownloadOptions forwards options to [client.Client.Download].
func WithDownloadOptions(opts ...client.DownloadOption) Option {
	return func(o *options) {
		o.download = append(o.download, opts...)
	}
}
