// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package store

import (
	"errors"
	"io"
	"sort"
	"sync"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// StorageConfig controls which backend Open uses.
type StorageConfig struct {
	Backend string // "sqlite" (default) or "memory".
	Path    string // Data directory for file-backed backends.
}

// Factory creates a Store from config.
type Factory func(cfg *StorageConfig) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

func init() {
	RegisterBackend("memory", func(*StorageConfig) (Store, error) {
		return NewMemoryStore(), nil
	})
}

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the stores of the configured backend.
func Open(cfg *StorageConfig) (Store, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, xzerr.Errorf(xzerr.CodeStoreBackendNotFound, "unsupported storage backend: %q", backend)
	}
	return factory(cfg)
}

type compositeStore struct {
	sessions SessionStore
	history  HistoryStore
	closers  []io.Closer
}

// NewCompositeStore creates a Store from individual sub-stores. Closers
// (e.g. shared database connections) are closed in order by Close.
func NewCompositeStore(sessions SessionStore, history HistoryStore, closers ...io.Closer) Store {
	return &compositeStore{sessions: sessions, history: history, closers: closers}
}

func (c *compositeStore) Sessions() SessionStore { return c.sessions }
func (c *compositeStore) History() HistoryStore   { return c.history }

func (c *compositeStore) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return xzerr.Wrap(errors.Join(errs...), xzerr.CodeStoreDatabaseFailure, "closing store")
	}
	return nil
}
