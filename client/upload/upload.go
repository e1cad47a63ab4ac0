// Package upload provides request body sources for streamed uploads.
//
// Each constructor returns a [client.SourceFunc] that the transfer engine
// invokes once per execution, so a retried request re-opens its source.
// The declared size is always known up front, which lets upload progress
// report a real total.
//
//	req, err := c.Prepare(client.Post("/upload").Source(upload.File("/tmp/report.pdf")))
package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/adamwoolhether/fetch/client"
)

// File streams the file at path as the raw request body. The Content-Type
// is sniffed from the file's leading bytes.
func File(path string) client.SourceFunc {
	return func(*client.Request) (*client.Payload, error) {
		mime, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("detecting content type: %w", err)
		}

		f, size, err := open(path)
		if err != nil {
			return nil, err
		}

		return &client.Payload{Reader: f, Size: size, ContentType: mime.String()}, nil
	}
}

// Bytes sends b as a streamed body. An empty contentType is sniffed from b.
func Bytes(b []byte, contentType string) client.SourceFunc {
	if contentType == "" {
		contentType = mimetype.Detect(b).String()
	}

	return func(*client.Request) (*client.Payload, error) {
		return &client.Payload{
			Reader:      bytes.NewReader(b),
			Size:        int64(len(b)),
			ContentType: contentType,
		}, nil
	}
}

func open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening upload source: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat upload source: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("upload source %s is a directory", path)
	}

	return f, info.Size(), nil
}

// readCloser joins a composed reader with the closer of the file it wraps.
type readCloser struct {
	io.Reader
	io.Closer
}
