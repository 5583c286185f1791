package repositories

import "context"

// LocalStore is the durable key→value persistence boundary for entity data
// and sync metadata. It carries no logic: pure read/write/clear.
//
// Get returns apperrors.ErrNotFound when the key is absent; callers apply
// their own defaults.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
}
