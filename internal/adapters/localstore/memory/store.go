package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
)

// Store is an in-memory implementation of LocalStore.
// It is safe for concurrent use. Data is lost on restart - use the sqlite
// store for durable persistence.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewStore creates a new in-memory local store.
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

var _ portsrepo.LocalStore = (*Store)(nil)

// Get implements the LocalStore interface.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.values[key]
	if !exists {
		return nil, fmt.Errorf("%w: key %s", apperrors.ErrNotFound, key)
	}

	// Return a copy to avoid external modifications
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set implements the LocalStore interface.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", apperrors.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return nil
}

// Delete implements the LocalStore interface. Deleting an absent key is not
// an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// ClearAll implements the LocalStore interface.
func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
	return nil
}
