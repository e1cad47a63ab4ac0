package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 64 << 10 // 64KB

// UnknownLength is reported as the total of a progress sample when the
// size of the transfer is not known up front.
const UnknownLength int64 = -1

var (
	// ErrUnexpectedStatusCode is matched by every [KindBadStatus] error.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is additionally matched when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrInterrupted is matched by every [KindInterrupted] error.
	ErrInterrupted = errors.New("request interrupted")
	// ErrTokenSpent is returned when a [Token] is reused for a second transfer.
	ErrTokenSpent = errors.New("token already terminated")
	// ErrInvalidURL is returned when a request cannot be resolved to an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid request url")
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = errors.New("content length mismatch")
)

// Kind classifies a [TransferError].
type Kind int

const (
	KindIOFailure Kind = iota
	KindConnectFailure
	KindTimeout
	KindInterrupted
	KindBadStatus
	KindDecodeFailure
)

func (k Kind) String() string {
	switch k {
	case KindConnectFailure:
		return "connect_failure"
	case KindTimeout:
		return "timeout"
	case KindInterrupted:
		return "interrupted"
	case KindBadStatus:
		return "bad_status"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "io_failure"
	}
}

// TransferError is the single failure type produced by request execution.
// Body carries the raw server payload for BadStatus, and the raw
// undecodable bytes for DecodeFailure.
type TransferError struct {
	Kind       Kind
	StatusCode int
	Body       []byte
	URL        string
	Err        error
}

func (e *TransferError) Error() string {
	switch e.Kind {
	case KindBadStatus:
		return fmt.Sprintf("%v: %d, body: %s", ErrUnexpectedStatusCode, e.StatusCode, e.Body)
	case KindInterrupted:
		return fmt.Sprintf("%s: %v", e.URL, ErrInterrupted)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	}
}

func (e *TransferError) Unwrap() []error {
	var errs []error
	switch e.Kind {
	case KindBadStatus:
		errs = append(errs, ErrUnexpectedStatusCode)
		if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
			errs = append(errs, ErrAuthFailure)
		}
	case KindInterrupted:
		errs = append(errs, ErrInterrupted)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf reports the Kind of err, or false when err is not a TransferError.
func KindOf(err error) (Kind, bool) {
	var te *TransferError
	if !errors.As(err, &te) {
		return 0, false
	}
	return te.Kind, true
}

// ErrorPayload returns the raw bytes carried by a TransferError, if any.
func ErrorPayload(err error) []byte {
	var te *TransferError
	if !errors.As(err, &te) {
		return nil
	}
	return te.Body
}
