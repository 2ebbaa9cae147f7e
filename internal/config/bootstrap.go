// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package config

import (
	"bytes"
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

//go:embed xiaozhu.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/xiaozhu/xiaozhu.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", xzerr.Wrap(err, xzerr.CodeConfigLoadReadFailure, "resolving home directory")
	}
	return filepath.Join(home, ".config", "xiaozhu", "xiaozhu.yaml"), nil
}

// WriteDefault writes the commented default config to path. An existing file
// is left alone unless force is set. It reports whether the file was written.
func WriteDefault(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, xzerr.Wrapf(err, xzerr.CodeConfigWriteFailure, "creating config directory for %s", path)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return false, xzerr.Wrapf(err, xzerr.CodeConfigWriteFailure, "writing config %s", path)
	}
	return true, nil
}

// BootstrapConfig writes the default config to DefaultConfigPath when no file
// exists yet. It returns the path written, or "" when nothing was written.
// Failures are logged and skipped.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	written, err := WriteDefault(cfgPath, false)
	if err != nil {
		slog.Debug("skipping config bootstrap", "path", cfgPath, "error", err)
		return ""
	}
	if !written {
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeConfigParseInvalidFormat, "marshalling config")
	}
	return out, nil
}

// SetValues updates dotted keys (e.g. "model.api_key") in the YAML file at
// path, keeping comments and the order of existing keys. Missing mappings
// are created. A missing file is treated as empty.
func SetValues(path string, values map[string]string) error {
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return xzerr.Wrapf(err, xzerr.CodeConfigLoadReadFailure, "reading config %s", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return xzerr.Wrapf(err, xzerr.CodeConfigParseInvalidFormat, "parsing config %s", path)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return xzerr.Errorf(xzerr.CodeConfigParseInvalidFormat, "config %s is not a mapping", path)
	}

	for key, value := range values {
		node := root
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			node = childMapping(node, part)
		}
		setScalar(node, parts[len(parts)-1], value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return xzerr.Wrap(err, xzerr.CodeConfigWriteFailure, "encoding config")
	}
	_ = enc.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return xzerr.Wrapf(err, xzerr.CodeConfigWriteFailure, "creating config directory for %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return xzerr.Wrapf(err, xzerr.CodeConfigWriteFailure, "writing config %s", path)
	}
	return nil
}

// childMapping returns the mapping stored under key, replacing a non-mapping
// value or creating it when absent.
func childMapping(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			if v.Kind != yaml.MappingNode {
				*v = yaml.Node{Kind: yaml.MappingNode}
			}
			return v
		}
	}
	v := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, v)
	return v
}

func setScalar(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			v.Kind, v.Tag, v.Value, v.Style, v.Content = yaml.ScalarNode, "!!str", value, 0, nil
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
}
