package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
)

// Store is a durable LocalStore backed by a single sqlite key-value table.
type Store struct {
	db *sql.DB
}

// NewStore creates the store and its schema if missing.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS kv_store (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create kv_store schema: %w", err)
	}
	return &Store{db: db}, nil
}

var _ portsrepo.LocalStore = (*Store)(nil)

// Get implements the LocalStore interface.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: key %s", apperrors.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

// Set implements the LocalStore interface with upsert semantics.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", apperrors.ErrValidation)
	}
	const query = `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete implements the LocalStore interface. Deleting an absent key is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// ClearAll implements the LocalStore interface.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store`); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
