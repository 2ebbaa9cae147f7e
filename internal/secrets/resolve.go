// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package secrets

import (
	"errors"
	"slices"
	"strings"

	"github.com/spf13/viper"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", xzerr.Errorf(xzerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", xzerr.Errorf(xzerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret value.
// Other values are returned unchanged.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", xzerr.Wrapf(err, xzerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveViperSecrets replaces every keyring:// string in v with its secret.
// All failures are collected; values that fail keep their URI.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := ResolveKeyringURI(store, val)
		if err != nil {
			errs = append(errs, xzerr.Wrapf(err, xzerr.CodeSecretResolveFailure,
				"config key %s (%s)", key, val))
			continue
		}
		v.Set(key, resolved)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SaveAPIKey stores key for provider under DefaultService and returns the
// URI to put in the config file.
func SaveAPIKey(store Store, provider, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", xzerr.New(xzerr.CodeSecretInvalidInput, "API key must not be empty")
	}
	if err := store.Store(DefaultService, APIKeyName(provider), strings.TrimSpace(key)); err != nil {
		return "", err
	}
	return APIKeyURI(provider), nil
}

// DeleteAPIKey removes the stored key for provider.
func DeleteAPIKey(store Store, provider string) error {
	return store.Delete(DefaultService, APIKeyName(provider))
}

// StoredProviders lists the providers that have an API key in store.
func StoredProviders(store Store) ([]string, error) {
	keys, err := store.List(DefaultService)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if name, ok := strings.CutSuffix(k, apiKeySuffix); ok && name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}
