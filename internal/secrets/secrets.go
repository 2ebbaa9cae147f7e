// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package secrets keeps model API keys out of config files. A config value
// of the form keyring://service/key is replaced by the stored secret.
package secrets

import "strings"

// DefaultService is the keyring service name used for provider API keys.
const DefaultService = "xiaozhu"

// Store provides secure secret storage operations.
type Store interface {
	// Store saves a secret value under the given service and key.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns a secret.not_found coded error if the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	Delete(service, key string) error

	// List returns all key names stored under the given service.
	List(service string) ([]string, error)
}

const apiKeySuffix = "-api-key"

// APIKeyName is the keyring key holding the API key for a provider preset.
func APIKeyName(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + apiKeySuffix
}

// APIKeyURI is the config value that points at the keyring entry for a
// provider preset, e.g. keyring://xiaozhu/deepseek-api-key.
func APIKeyURI(provider string) string {
	return keyringScheme + DefaultService + "/" + APIKeyName(provider)
}
