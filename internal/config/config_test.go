// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/paths"
	"leakaudit/internal/resilience"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "leakaudit.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Defaults.Format)
	assert.Equal(t, 50, cfg.Defaults.Workers)
	assert.Equal(t, "stub", cfg.EffectiveBackend())
	assert.True(t, cfg.Extractor.CircuitBreaker.Enabled)
	assert.True(t, cfg.Defaults.ShowEvidence)
	assert.Equal(t, []string{"audit", "quick"}, cfg.ListProfiles())
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
defaults:
  format: sarif
  workers: 8
  timeout: 90s
extractor:
  backend: ollama
  base_url: http://gpu-box:11434
  model: qwen3:8b
  max_retries: 2
  initial_backoff: 500ms
sources:
  exclude: ["vendor/**"]
profiles:
  ci:
    description: CI gate
    format: json
    flagged_only: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sarif", cfg.Defaults.Format)
	assert.Equal(t, 8, cfg.Defaults.Workers)
	assert.Equal(t, 90*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, "ollama", cfg.EffectiveBackend())
	assert.Equal(t, "qwen3:8b", cfg.Extractor.Model)
	assert.True(t, cfg.Extractor.CircuitBreaker.Enabled, "absent enabled key keeps the default")
	assert.Equal(t, []string{"vendor/**"}, cfg.Sources.Exclude)
	assert.NotEmpty(t, cfg.Sources.Include, "unset include keeps the default")

	rc := cfg.Extractor.RetryConfig()
	assert.Equal(t, 2, rc.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, rc.InitialInterval)
	assert.Equal(t, 1.7, rc.Multiplier)
	assert.Equal(t, 1, rc.TypeBudgets[resilience.ErrorTypeMalformedResponse])

	require.NoError(t, cfg.ApplyProfile("ci"))
	assert.Equal(t, "json", cfg.Defaults.Format)
	assert.True(t, cfg.Defaults.FlaggedOnly)
	assert.Equal(t, 8, cfg.Defaults.Workers)

	require.NoError(t, cfg.ApplyProfile("quick"))
	assert.Equal(t, "none", cfg.EffectiveBackend(), "profile backend wins over the extractor section")
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"workers", "defaults:\n  workers: 5000\n", "Workers"},
		{"backend", "defaults:\n  backend: bedrock\n", "Backend"},
		{"format", "defaults:\n  format: xml\n", "Format"},
		{"base url", "extractor:\n  base_url: not a url\n", "BaseURL"},
		{"multiplier", "extractor:\n  backoff_multiplier: 0.5\n", "BackoffMultiplier"},
		{"profile", "profiles:\n  bad:\n    workers: 0\n    backend: gpt\n", "Backend"},
		{"api key env", "extractor:\n  api_key_env: MY KEY\n", "api_key_env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("/nonexistent/leakaudit.yaml")
	assert.ErrorContains(t, err, "error reading config file")

	_, err = LoadConfig(writeConfig(t, ":::invalid yaml:::"))
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestLoadConfigOrDefault_FallsBack(t *testing.T) {
	cfg := LoadConfigOrDefault(writeConfig(t, "defaults:\n  workers: -1\n"))
	require.NotNil(t, cfg)
	assert.Equal(t, 50, cfg.Defaults.Workers)
}

func TestBreakerConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
extractor:
  circuit_breaker:
    enabled: true
    failure_threshold: 2
    success_threshold: 1
    reset_timeout: 5s
`))
	require.NoError(t, err)
	cb, ok := cfg.Extractor.BreakerConfig()
	require.True(t, ok)
	assert.Equal(t, 2, cb.FailureThreshold)
	assert.Equal(t, 5*time.Second, cb.Timeout)

	cfg, err = LoadConfig(writeConfig(t, "extractor:\n  circuit_breaker:\n    enabled: false\n"))
	require.NoError(t, err)
	_, ok = cfg.Extractor.BreakerConfig()
	assert.False(t, ok)
}

func TestApplyProfile_Unknown(t *testing.T) {
	err := Default().ApplyProfile("nope")
	assert.ErrorContains(t, err, "available: audit, quick")
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(paths.ConfigDirEnv, filepath.Join(dir, "user"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, "", FindConfigFile())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "user"), 0o755))
	userFile := filepath.Join(dir, "user", "config.yaml")
	require.NoError(t, os.WriteFile(userFile, []byte("{}"), 0o600))
	assert.Equal(t, userFile, FindConfigFile())

	require.NoError(t, os.WriteFile(".leakaudit.yaml", []byte("{}"), 0o600))
	assert.Equal(t, ".leakaudit.yaml", FindConfigFile())

	require.NoError(t, os.WriteFile("leakaudit.yaml", []byte("{}"), 0o600))
	assert.Equal(t, "leakaudit.yaml", FindConfigFile())
}
