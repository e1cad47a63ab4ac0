package client

import (
	"io"
	"net/http"
	"time"
)

// ProgressFunc receives cumulative bytes transferred and the expected
// total, which is [UnknownLength] for chunked transfers. Samples for one
// transfer never decrease.
type ProgressFunc func(transferred, total int64)

// DestinationFunc supplies the sink a response body is streamed into.
// resp carries the status and headers received so far. The sink's
// lifecycle belongs to the caller; the engine never closes it.
type DestinationFunc func(req *Request, resp *Response) (io.Writer, error)

// Response is the raw outcome of a successful transfer.
type Response struct {
	StatusCode int
	Header     http.Header
	// ContentLength is the declared body size, or UnknownLength.
	ContentLength int64
	// Body is nil when the body was streamed to a destination.
	Body []byte
	// Size is the number of body bytes read.
	Size    int64
	URL     string
	Elapsed time.Duration
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
