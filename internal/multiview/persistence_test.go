package multiview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLayout_writes_fixed_keys(t *testing.T) {
	store := NewInMemoryStore()
	err := SaveLayout(store, Layout{Left: []StreamID{idA, idB}, MutedAll: true, Volume: 40})
	require.NoError(t, err)

	left, ok, _ := store.Get(KeyLeftIDs)
	require.True(t, ok)
	assert.Equal(t, `["dQw4w9WgXcQ","jNQXAC9IVRw"]`, left)

	right, _, _ := store.Get(KeyRightIDs)
	assert.Equal(t, `[]`, right, "empty column is stored as an empty array")

	muted, _, _ := store.Get(KeyMuted)
	assert.Equal(t, "true", muted)

	volume, _, _ := store.Get(KeyVolume)
	assert.Equal(t, "40", volume)

	_, ok, _ = store.Get(KeyLegacyIDs)
	assert.False(t, ok)
}

func TestLoadLayout_round_trip(t *testing.T) {
	store := NewInMemoryStore()
	want := Layout{Left: []StreamID{idA, idB, idC}, Right: []StreamID{idD, idE}, MutedAll: true, Volume: 70}
	require.NoError(t, SaveLayout(store, want))

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadLayout_empty_store(t *testing.T) {
	got, err := LoadLayout(NewInMemoryStore())
	require.NoError(t, err)
	assert.Empty(t, got.Left)
	assert.Empty(t, got.Right)
	assert.False(t, got.MutedAll)
	assert.Equal(t, DefaultVolume, got.Volume)
}

func TestLoadLayout_legacy_list_alternates(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyLegacyIDs, `["dQw4w9WgXcQ","jNQXAC9IVRw","9bZkp7q19f0","kJQP7kiw5Fk"]`)

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Equal(t, []StreamID{idA, idC}, got.Left)
	assert.Equal(t, []StreamID{idB, idD}, got.Right)
}

func TestLoadLayout_column_keys_win_over_legacy(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyLegacyIDs, `["dQw4w9WgXcQ","jNQXAC9IVRw"]`)
	_ = store.Set(KeyRightIDs, `["9bZkp7q19f0"]`)

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Empty(t, got.Left)
	assert.Equal(t, []StreamID{idC}, got.Right)
}

func TestLoadLayout_caps_columns(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyLeftIDs, `["dQw4w9WgXcQ","jNQXAC9IVRw","9bZkp7q19f0","kJQP7kiw5Fk","RgKAFK5djSk"]`)

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Equal(t, []StreamID{idA, idB, idC}, got.Left)
}

func TestLoadLayout_malformed_json_is_empty(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyLeftIDs, `["dQw4w9WgXcQ"`)
	_ = store.Set(KeyRightIDs, `["jNQXAC9IVRw"]`)
	_ = store.Set(KeyMuted, "yes")
	_ = store.Set(KeyVolume, "loud")

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Empty(t, got.Left)
	assert.Equal(t, []StreamID{idB}, got.Right)
	assert.False(t, got.MutedAll, "only the literal \"true\" mutes")
	assert.Equal(t, DefaultVolume, got.Volume)
}

func TestLoadLayout_malformed_legacy_is_empty(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Set(KeyLegacyIDs, `{not json`)

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Empty(t, got.Left)
	assert.Empty(t, got.Right)
}

func TestLoadLayout_store_error(t *testing.T) {
	_, err := LoadLayout(failingStore{})
	assert.Error(t, err)
}

type batchCountingStore struct {
	*InMemoryStore
	sets    int
	batches int
}

func (s *batchCountingStore) Set(key, value string) error {
	s.sets++
	return s.InMemoryStore.Set(key, value)
}

func (s *batchCountingStore) SetBatch(entries []Entry) error {
	s.batches++
	return s.InMemoryStore.SetBatch(entries)
}

// halfFailingStore has no batch support. It accepts the first write and fails
// the rest, like a crash between two keys.
type halfFailingStore struct {
	values *InMemoryStore
	writes int
}

func (s *halfFailingStore) Get(key string) (string, bool, error) {
	return s.values.Get(key)
}

func (s *halfFailingStore) Set(key, value string) error {
	s.writes++
	if s.writes > 1 {
		return errors.New("disk gone")
	}
	return s.values.Set(key, value)
}

func TestSaveLayout_uses_one_batch(t *testing.T) {
	store := &batchCountingStore{InMemoryStore: NewInMemoryStore()}
	want := Layout{Left: []StreamID{idA}, Right: []StreamID{idB}, Volume: 55}

	require.NoError(t, SaveLayout(store, want))
	assert.Equal(t, 1, store.batches)
	assert.Zero(t, store.sets)

	got, err := LoadLayout(store)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLayout_without_batch_reports_partial_write(t *testing.T) {
	store := &halfFailingStore{values: NewInMemoryStore()}
	err := SaveLayout(store, Layout{Left: []StreamID{idA}, Volume: DefaultVolume})
	assert.ErrorContains(t, err, KeyRightIDs)
}
