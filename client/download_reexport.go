package client

import (
	"hash"

	"github.com/adamwoolhether/fetch/client/download"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [download].
// ————————————————————————————————————————————————————————————————————

// ChecksumError reports a downloaded file whose digest did not match.
type ChecksumError = download.ChecksumError

// ErrChecksumMismatch indicates the file checksum did not match the expected value.
var ErrChecksumMismatch = download.ErrChecksumMismatch

// ————————————————————————————————————————————————————————————————————
// Download options
// ————————————————————————————————————————————————————————————————————

// DownloadOption is a functional option for [Client.Download].
type DownloadOption func(*downloadOpts) error

type downloadOpts struct {
	file        []download.Option
	call        []CallOption
	logProgress bool
}

// WithChecksum enables checksum validation of the downloaded file.
// h is a [hash.Hash] instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return func(opts *downloadOpts) error {
		opts.file = append(opts.file, download.WithChecksum(h, expected))
		return nil
	}
}

// WithSkipExisting causes a download to return immediately when
// the destination file already exists.
func WithSkipExisting() DownloadOption {
	return func(opts *downloadOpts) error {
		opts.file = append(opts.file, download.WithSkipExisting())
		return nil
	}
}

// WithProgressLog enables periodic download progress logging through the
// client's logger.
func WithProgressLog() DownloadOption {
	return func(opts *downloadOpts) error {
		opts.logProgress = true
		return nil
	}
}

// WithCallOptions forwards per-execution options, such as a [Token] or a
// [ProgressFunc], to the underlying [Client.Execute].
func WithCallOptions(opts ...CallOption) DownloadOption {
	return func(o *downloadOpts) error {
		o.call = append(o.call, opts...)
		return nil
	}
}
