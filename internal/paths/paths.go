// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirEnv overrides the configuration directory on every platform.
const ConfigDirEnv = "LEAKAUDIT_CONFIG_DIR"

// GetConfigDir returns the leakaudit configuration directory: the override
// variable when set, otherwise the user config directory (APPDATA on
// Windows, XDG_CONFIG_HOME or ~/.config on Unix).
func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return NormalizePath(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return ""
		}
		return filepath.Join(home, ".leakaudit")
	}
	return filepath.Join(base, "leakaudit")
}

// GetConfigFile returns the path to the user-level config file.
func GetConfigFile() string {
	dir := GetConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// NormalizePath expands a leading ~ and cleans the path for the current
// platform.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(filepath.FromSlash(path))
}
