package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File is an io.Writer backed by a temp file in the destination directory.
// Bytes become visible at the destination path only after Commit.
type File struct {
	mu      sync.Mutex
	file    *os.File
	w       io.Writer
	dest    string
	digest  *digest
	logger  *slog.Logger
	written int64
	done    bool
}

// Create opens a temp file next to destPath. With WithSkipExisting and an
// existing destPath it returns ErrExists.
func Create(destPath string, logger *slog.Logger, optFns ...Option) (*File, error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, destPath)
		}
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-dl-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	var writer io.Writer = file
	if opts.digest != nil {
		writer = io.MultiWriter(writer, opts.digest)
	}

	return &File{
		file:   file,
		w:      writer,
		dest:   destPath,
		digest: opts.digest,
		logger: logger,
	}, nil
}

// Write appends p to the temp file.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return 0, ErrFinished
	}

	n, err := f.w.Write(p)
	f.written += int64(n)

	return n, err
}

// Written returns the number of bytes written so far.
func (f *File) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// TempPath returns the path of the temp file receiving the bytes.
func (f *File) TempPath() string {
	return f.file.Name()
}

// Commit verifies the checksum, flushes the temp file and renames it to the
// destination path. On any failure the temp file is removed.
func (f *File) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return ErrFinished
	}
	f.done = true

	var successful bool
	defer func() {
		if err := f.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			f.logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(f.file.Name()); err != nil {
				f.logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	if err := f.digest.check(); err != nil {
		return err
	}

	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(f.file.Name(), f.dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return nil
}

// Abort closes and removes the temp file. Calling it after Commit is a no-op.
func (f *File) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return nil
	}
	f.done = true

	if err := f.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		f.logger.Error("closing temp file", "error", err)
	}
	if err := os.Remove(f.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing temp file: %w", err)
	}

	return nil
}
