package client

import (
	"errors"
	"io"
)

// defaultChunkSize is the granularity at which bodies are read and
// written, and therefore the granularity of cancellation checks and
// progress samples.
const defaultChunkSize = 32 << 10 // 32KB

// errInterrupted is returned by the streaming helpers when they observe a
// pending interrupt at a chunk boundary.
var errInterrupted = errors.New("interrupt observed at chunk boundary")

// errSinkWrite marks failures of the destination sink, as opposed to
// failures reading from the network.
type errSinkWrite struct{ err error }

func (e errSinkWrite) Error() string { return "writing to destination: " + e.err.Error() }
func (e errSinkWrite) Unwrap() error { return e.err }

// copyChunks streams src into dst chunk by chunk. Before every chunk it
// consults the token, and after every chunk it reports the cumulative
// byte count.
func copyChunks(x *Exchange, dst io.Writer, src io.Reader, total int64) (int64, error) {
	size := x.chunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	buf := make([]byte, size)

	var written int64
	for {
		if x.token.interrupted(x.Request) {
			return written, errInterrupted
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if werr != nil {
				return written, errSinkWrite{err: werr}
			}
			if nw != nr {
				return written, errSinkWrite{err: io.ErrShortWrite}
			}
			if x.progress != nil {
				x.progress(written, total)
			}
		}

		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// uploadReader feeds a request body to the transport, checking the token
// before each chunk and reporting cumulative bytes handed over.
type uploadReader struct {
	r        io.Reader
	token    *Token
	progress ProgressFunc
	total    int64
	read     int64
	size     int
}

func (u *uploadReader) Read(p []byte) (int, error) {
	if u.token.State() == InterruptRequested {
		return 0, errInterrupted
	}
	if u.size > 0 && len(p) > u.size {
		p = p[:u.size]
	}

	n, err := u.r.Read(p)
	if n > 0 {
		u.read += int64(n)
		if u.progress != nil {
			u.progress(u.read, u.total)
		}
	}

	return n, err
}

func (u *uploadReader) Close() error {
	if c, ok := u.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
