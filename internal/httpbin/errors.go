package httpbin

import (
	"fmt"
	"net/http"
	"path"
	"runtime"
)

// Error is a handler failure rendered as a JSON body with Code as status.
// Internal errors are logged in full but answered with the status text.
type Error struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	source   string
	internal bool
	cause    error
}

// newError constructs a client-visible error.
func newError(code int, err error) *Error {
	return &Error{Code: code, Message: err.Error(), source: caller(2), cause: err}
}

// newInternal wraps an unexpected failure as a 500.
func newInternal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: err.Error(), source: caller(2), internal: true, cause: err}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// caller reports "pkg.Func file.go:line" for the frame skip levels up.
func caller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}

	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = path.Base(fn.Name())
	}

	return fmt.Sprintf("%s %s:%d", name, path.Base(file), line)
}
