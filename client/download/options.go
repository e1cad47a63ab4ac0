package download

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrExists           = errors.New("destination already exists")
	ErrFinished         = errors.New("download already committed or aborted")
)

// ChecksumError reports the digest of a download that did not match the
// expected one. It matches ErrChecksumMismatch with errors.Is.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: expected %s, got %s", ErrChecksumMismatch, e.Expected, e.Actual)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// Option configures Create.
type Option func(*options) error

type options struct {
	digest       *digest
	skipExisting bool
}

// WithChecksum hashes every written byte with h and makes Commit fail with
// a *ChecksumError unless the sum equals the hex-encoded expected value.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		want, err := hex.DecodeString(expected)
		if err != nil {
			return fmt.Errorf("expected checksum %q is not hex: %w", expected, err)
		}

		opts.digest = &digest{hash: h, want: want}
		return nil
	}
}

// WithSkipExisting makes Create fail with ErrExists when the destination
// is already present.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}

// digest tees written bytes into a hash and checks the sum on commit.
type digest struct {
	hash hash.Hash
	want []byte
}

func (d *digest) Write(p []byte) (int, error) {
	return d.hash.Write(p)
}

func (d *digest) check() error {
	if d == nil {
		return nil
	}

	got := d.hash.Sum(nil)
	if !bytes.Equal(got, d.want) {
		return &ChecksumError{Expected: hex.EncodeToString(d.want), Actual: hex.EncodeToString(got)}
	}

	return nil
}
