// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// DBFile is the database file name inside the data directory.
const DBFile = "xiaozhu.db"

func init() {
	store.RegisterBackend("sqlite", newStore)
}

func newStore(cfg *store.StorageConfig) (store.Store, error) {
	if cfg.Path == "" {
		return nil, xzerr.New(xzerr.CodeStoreInvalidInput, "sqlite backend requires a data path")
	}
	if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "creating data directory")
	}

	db, err := Open(filepath.Join(cfg.Path, DBFile))
	if err != nil {
		return nil, err
	}
	return store.NewCompositeStore(NewSessionStoreWithDB(db), NewHistoryStoreWithDB(db), db), nil
}
