package multiview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_GetSet(t *testing.T) {
	store := NewInMemoryStore()

	_, ok, err := store.Get(KeyLeftIDs)
	require.NoError(t, err)
	assert.False(t, ok, "expected not found for empty store")

	require.NoError(t, store.Set(KeyLeftIDs, `["dQw4w9WgXcQ"]`))
	got, ok, err := store.Get(KeyLeftIDs)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["dQw4w9WgXcQ"]`, got)
}

func TestInMemoryStore_Set_replaces(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyMuted, "false")
	_ = store.Set(KeyMuted, "true")

	got, _, _ := store.Get(KeyMuted)
	assert.Equal(t, "true", got)
}

func TestInMemoryStore_empty_value_is_present(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyRightIDs, "")

	got, ok, _ := store.Get(KeyRightIDs)
	assert.True(t, ok)
	assert.Empty(t, got)
}
