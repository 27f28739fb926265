package kvstore

import (
	"errors"
	"fmt"
	"path/filepath"

	"stream-multiview/internal/multiview"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleStore persists values in a Pebble database, one entry per key.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the database under dir/layout.
func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Join(dir, "layout"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Get implements multiview.Store.Get.
func (s *PebbleStore) Get(key string) (string, bool, error) {
	data, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer closer.Close()
	return string(data), true, nil
}

// Set implements multiview.Store.Set. Writes are synced.
func (s *PebbleStore) Set(key, value string) error {
	return s.db.Set([]byte(key), []byte(value), pebble.Sync)
}

// SetBatch implements multiview.BatchStore with one synced pebble batch.
func (s *PebbleStore) SetBatch(entries []multiview.Entry) error {
	b := s.db.NewBatch()
	defer b.Close()
	for _, e := range entries {
		if err := b.Set([]byte(e.Key), []byte(e.Value), nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// Close closes the database.
func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
