package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermate/ledgermate/internal/adapters/localstore/memory"
	"github.com/ledgermate/ledgermate/internal/apperrors"
)

func TestStoreRoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`)))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":2}`)))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), got)
}

func TestStoreDelete(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStoreClearAll(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Set(ctx, "b", []byte("2")))
	require.NoError(t, store.ClearAll(ctx))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStoreReturnsCopies(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	original := []byte("value")
	require.NoError(t, store.Set(ctx, "k", original))
	original[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got, "stored bytes are isolated from caller mutations")

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}
