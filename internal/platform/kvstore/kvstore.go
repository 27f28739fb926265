// Package kvstore provides the on-disk string stores the layout is persisted to.
package kvstore

import (
	"fmt"
	"os"

	"stream-multiview/internal/multiview"
	"stream-multiview/internal/platform/config"
)

// Store is a multiview.BatchStore that holds resources until closed.
type Store interface {
	multiview.BatchStore
	Close() error
}

// Open returns the store for backend, creating dir when the backend needs it.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case config.BackendMemory:
		return memoryStore{multiview.NewInMemoryStore()}, nil
	case config.BackendPebble, config.BackendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		if backend == config.BackendPebble {
			return OpenPebble(dir)
		}
		return OpenSQLite(dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

type memoryStore struct {
	*multiview.InMemoryStore
}

func (memoryStore) Close() error { return nil }
