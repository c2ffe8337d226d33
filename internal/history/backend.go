package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// SlotKey names the single persisted slot holding the whole history.
const SlotKey = "instaPoemHistory"

var (
	// ErrSlotEmpty is returned by Read when nothing has been stored yet.
	ErrSlotEmpty = errors.New("history slot is empty")
	// ErrQuotaExceeded is returned by Write when the payload does not fit the backend's capacity.
	ErrQuotaExceeded = errors.New("history storage quota exceeded")
)

// Backend is the raw storage the Store persists its serialized view to.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind     string // file, sqlite, memory
	DataDir  string
	MaxBytes int64
}

// OpenBackend builds the backend named by cfg.Kind.
// The returned close func is never nil.
func OpenBackend(cfg BackendConfig) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "", "file":
		return NewFileBackend(filepath.Join(cfg.DataDir, SlotKey+".json"), cfg.MaxBytes), noop, nil
	case "sqlite":
		b, err := NewSQLiteBackend(filepath.Join(cfg.DataDir, "instapoem.db"), cfg.MaxBytes)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case "memory":
		return NewMemoryBackend(cfg.MaxBytes), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown history backend %q", cfg.Kind)
	}
}

// MemoryBackend keeps the slot in process memory.
// A positive capacity makes oversized writes fail with ErrQuotaExceeded.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	capacity int64
	writes   int
}

// NewMemoryBackend creates an in-process backend; capacity <= 0 means unlimited.
func NewMemoryBackend(capacity int64) *MemoryBackend {
	return &MemoryBackend{capacity: capacity}
}

func (m *MemoryBackend) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capacity > 0 && int64(len(data)) > m.capacity {
		return fmt.Errorf("write %d bytes (capacity %d): %w", len(data), m.capacity, ErrQuotaExceeded)
	}
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

// Writes returns how many writes have succeeded.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Bytes returns a copy of the stored slot.
func (m *MemoryBackend) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Set replaces the slot directly, bypassing the capacity check.
func (m *MemoryBackend) Set(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}
