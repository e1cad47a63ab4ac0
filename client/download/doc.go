// Package download provides the on-disk sink used by client.Download.
//
// [Create] opens a temporary file alongside the destination path. The
// transfer engine writes the response body into it chunk by chunk, and
// [File.Commit] verifies the optional checksum before atomically renaming
// the temp file into place:
//
//	f, err := download.Create(destPath, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//	// ... stream into f ...
//	if err := f.Commit(); err != nil { ... }
//
// [File.Abort] discards the temp file instead. [LogProgress] adapts a
// logger into a progress callback that reports at most once per second.
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/fetch/client] package, which drives a File
// internally and exposes the options as client.With* functions.
package download
