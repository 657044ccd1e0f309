package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

var _ FileStorage = (*Disk)(nil)

// Disk stores covers as plain files in a single directory.
type Disk struct {
	dir    string
	logger *slog.Logger
}

// NewDisk creates dir if needed and returns a Disk rooted there.
func NewDisk(dir string, logger *slog.Logger) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload dir %s: %w", dir, err)
	}
	return &Disk{dir: dir, logger: logger}, nil
}

// Save writes the file with O_EXCL so an existing cover is never
// overwritten. A partially written file is removed on error.
func (d *Disk) Save(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	path := filepath.Join(d.dir, key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: creating %s: %w", key, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("storage: writing %s: %w", key, err)
	}

	d.logger.Debug("cover stored on disk",
		slog.String("key", key),
		slog.Int64("bytes", n),
		slog.Int64("declaredSize", size),
	)
	return nil
}

func (d *Disk) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if !ValidKey(key) {
		return nil, ErrObjectNotFound
	}
	f, err := os.Open(filepath.Join(d.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("storage: opening %s: %w", key, err)
	}
	return f, nil
}

func (d *Disk) Remove(_ context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := os.Remove(filepath.Join(d.dir, key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("storage: removing %s: %w", key, err)
	}
	return nil
}
