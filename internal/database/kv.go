package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai-grocery-checklist/internal/shopping"
)

// SavedListKV stores save slots in the saved_lists table.
type SavedListKV struct {
	db *sql.DB
}

// NewSavedListKV creates a SavedListKV on an open, migrated database.
func NewSavedListKV(db *sql.DB) *SavedListKV {
	return &SavedListKV{db: db}
}

// Get returns the stored document or shopping.ErrNotFound.
func (s *SavedListKV) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saved_lists WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopping.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query saved list %q: %w", key, err)
	}
	return []byte(data), nil
}

// Put inserts or replaces the document under key.
func (s *SavedListKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_lists (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(TimeLayout))
	if err != nil {
		return fmt.Errorf("failed to upsert saved list %q: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error.
func (s *SavedListKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_lists WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete saved list %q: %w", key, err)
	}
	return nil
}

// Has reports whether key exists without reading the document.
func (s *SavedListKV) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM saved_lists WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check saved list %q: %w", key, err)
	}
	return true, nil
}
