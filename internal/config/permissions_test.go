// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

//go:build !windows

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestWarnInsecurePermissions(t *testing.T) {
	tests := []struct {
		name       string
		perm       os.FileMode
		expectWarn bool
	}{
		{name: "owner only", perm: 0o600},
		{name: "read only", perm: 0o400},
		{name: "group readable", perm: 0o640, expectWarn: true},
		{name: "other readable", perm: 0o604, expectWarn: true},
		{name: "world readable", perm: 0o644, expectWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "xiaozhu.yaml")
			require.NoError(t, os.WriteFile(path, []byte("model:\n  api_key: sk-test\n"), 0o600))
			require.NoError(t, os.Chmod(path, tt.perm))

			_, insecure, err := InsecurePermissions(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expectWarn, insecure)

			buf := captureLogs(t)
			WarnInsecurePermissions(path)

			if tt.expectWarn {
				assert.Contains(t, buf.String(), "readable by other users")
				assert.Contains(t, buf.String(), path)
				assert.Contains(t, buf.String(), "0600")
			} else {
				assert.NotContains(t, buf.String(), "level=WARN")
			}
		})
	}
}

func TestWarnInsecurePermissions_EmptyPath(t *testing.T) {
	buf := captureLogs(t)
	WarnInsecurePermissions("")
	assert.Empty(t, buf.String())
}

func TestWarnInsecurePermissions_MissingFile(t *testing.T) {
	buf := captureLogs(t)
	WarnInsecurePermissions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Contains(t, buf.String(), "could not stat")
	assert.NotContains(t, buf.String(), "level=WARN")
}
