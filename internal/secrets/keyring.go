// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// indexKey is the entry under each service that lists the keys stored
// there. OS keyrings cannot enumerate entries themselves.
const indexKey = "::index"

// KeyringStore implements Store on the OS keyring (Keychain, secret-service
// or Credential Manager).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkRef(op, service, key string) error {
	switch {
	case service == "":
		return xzerr.Errorf(xzerr.CodeSecretInvalidInput, "secret %s: empty service", op)
	case key == "":
		return xzerr.Errorf(xzerr.CodeSecretInvalidInput, "secret %s: empty key", op)
	case key == indexKey:
		return xzerr.Errorf(xzerr.CodeSecretInvalidInput, "secret %s: %q is reserved", op, key)
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkRef("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return xzerr.Wrapf(err, xzerr.CodeSecretStoreFailure, "storing %s/%s", service, key)
	}
	return updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		keys = append(keys, key)
		slices.Sort(keys)
		return keys
	})
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkRef("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", xzerr.Errorf(xzerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", xzerr.Wrapf(err, xzerr.CodeSecretStoreFailure, "retrieving %s/%s", service, key)
	}
	return val, nil
}

// Delete removes the secret. A key that is missing from the keyring but
// still listed is dropped from the index before the not-found error is
// returned.
func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}

	err := keyring.Delete(service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return xzerr.Wrapf(err, xzerr.CodeSecretDeleteFailure, "deleting %s/%s", service, key)
	}
	if idxErr := updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	}); idxErr != nil {
		return idxErr
	}
	if err != nil {
		return xzerr.Errorf(xzerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	return nil
}

// List returns the keys stored under service in sorted order.
func (s *KeyringStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, xzerr.New(xzerr.CodeSecretInvalidInput, "secret list: empty service")
	}
	return readIndex(service)
}

func readIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeSecretListFailure, "reading key index of %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeSecretListFailure, "decoding key index of %s", service)
	}
	return keys, nil
}

// updateIndex rewrites the index of service with edit applied. An empty
// index is removed instead of stored.
func updateIndex(service string, edit func([]string) []string) error {
	keys, err := readIndex(service)
	if err != nil {
		return err
	}
	keys = edit(keys)

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return xzerr.Wrapf(err, xzerr.CodeSecretListFailure, "encoding key index of %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return xzerr.Wrapf(err, xzerr.CodeSecretListFailure, "writing key index of %s", service)
	}
	return nil
}
