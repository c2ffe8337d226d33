package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps the slot as a single row of a key/value table.
type SQLiteBackend struct {
	db       *sql.DB
	key      string
	maxBytes int64
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string, maxBytes int64) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; the slot is tiny
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, key: SlotKey, maxBytes: maxBytes}
	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initialize() error {
	if _, err := b.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create slots table: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", b.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrSlotEmpty
	}
	return data, nil
}

func (b *SQLiteBackend) Write(ctx context.Context, data []byte) error {
	if b.maxBytes > 0 && int64(len(data)) > b.maxBytes {
		return fmt.Errorf("write %d bytes (max %d): %w", len(data), b.maxBytes, ErrQuotaExceeded)
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.key, data)
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
