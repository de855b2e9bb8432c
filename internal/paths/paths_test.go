// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigDir_Override(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)
	assert.Equal(t, filepath.Clean(dir), GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigFile())
}

func TestNormalizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err == nil {
		assert.Equal(t, filepath.Join(home, "papers"), NormalizePath("~/papers"))
	}
	assert.Equal(t, filepath.Clean("a/b"), NormalizePath("a//b/"))
	assert.Equal(t, "", NormalizePath(""))
}
