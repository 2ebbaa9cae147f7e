// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// InsecurePermissions reports whether the file at path is readable by group
// or others.
func InsecurePermissions(path string) (fs.FileMode, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, err
	}

	const groupRead fs.FileMode = 0o040
	const otherRead fs.FileMode = 0o004

	mode := info.Mode()
	return mode, mode.Perm()&(groupRead|otherRead) != 0, nil
}

// WarnInsecurePermissions logs a warning when the config file may expose an
// API key to other users. It never fails startup.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}

	mode, insecure, err := InsecurePermissions(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}
	if insecure {
		slog.Warn("config file is readable by other users, api key may be exposed",
			"path", path,
			"mode", mode,
			"recommended", "0600",
		)
	}
}
