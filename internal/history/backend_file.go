package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores the slot as a JSON file, replaced atomically on each write.
type FileBackend struct {
	path     string
	maxBytes int64
}

// NewFileBackend creates a backend at path; maxBytes <= 0 means unlimited.
func NewFileBackend(path string, maxBytes int64) *FileBackend {
	return &FileBackend{path: path, maxBytes: maxBytes}
}

// Path returns the file the slot lives in.
func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return nil, ErrSlotEmpty
	}
	return data, nil
}

// Write replaces the file via temp file + fsync + rename so readers
// never observe a half-written slot.
func (f *FileBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return fmt.Errorf("write %d bytes (max %d): %w", len(data), f.maxBytes, ErrQuotaExceeded)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".instapoem-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
