package async

import (
	"github.com/adamwoolhether/fetch/client"
)

// Handle tracks one asynchronous call.
type Handle struct {
	token *client.Token
	done  chan struct{}
}

func newHandle(tok *client.Token) *Handle {
	return &Handle{token: tok, done: make(chan struct{})}
}

// Cancel requests an interrupt of the call. The result is still
// delivered, as an Interrupted failure when the transfer was aborted.
func (h *Handle) Cancel() {
	h.token.Cancel()
}

// Done is closed after the result has been delivered.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Token returns the cancellation token bound to the call.
func (h *Handle) Token() *client.Token {
	return h.token
}
