// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"leakaudit/internal/paths"
	"leakaudit/internal/resilience"
)

// validate is shared; building a validator caches struct metadata.
var validate = validator.New()

// Config represents the application configuration
type Config struct {
	Defaults  Defaults           `yaml:"defaults"`
	Extractor Extractor          `yaml:"extractor"`
	Sources   Sources            `yaml:"sources"`
	Profiles  map[string]Profile `yaml:"profiles" validate:"dive"`
}

// Defaults are the run settings used when no flag overrides them.
type Defaults struct {
	Format       string        `yaml:"format" validate:"oneof=text json yaml csv sarif"`
	Workers      int           `yaml:"workers" validate:"min=1,max=1000"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
	Backend      string        `yaml:"backend" validate:"oneof=stub openai ollama none"`
	ShowEvidence bool          `yaml:"show_evidence"`
	FlaggedOnly  bool          `yaml:"flagged_only"`
	IncludeText  bool          `yaml:"include_text"`
	Verbose      bool          `yaml:"verbose"`
	Debug        bool          `yaml:"debug"`
	NoColor      bool          `yaml:"no_color"`
}

// Extractor configures the language-model backend and its call policy.
type Extractor struct {
	Backend           string         `yaml:"backend" validate:"omitempty,oneof=stub openai ollama none"`
	BaseURL           string         `yaml:"base_url" validate:"omitempty,url"`
	Model             string         `yaml:"model"`
	Temperature       float64        `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens         int            `yaml:"max_tokens" validate:"min=0"`
	APIKeyEnv         string         `yaml:"api_key_env"`
	MaxRetries        int            `yaml:"max_retries" validate:"min=0,max=20"`
	MalformedRetries  int            `yaml:"malformed_retries" validate:"min=0,max=20"`
	InitialBackoff    time.Duration  `yaml:"initial_backoff" validate:"min=0"`
	BackoffMultiplier float64        `yaml:"backoff_multiplier" validate:"gte=1"`
	CallTimeout       time.Duration  `yaml:"call_timeout" validate:"min=0"`
	CircuitBreaker    CircuitBreaker `yaml:"circuit_breaker"`
}

// CircuitBreaker configures the breaker shared by every worker.
type CircuitBreaker struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold" validate:"min=1"`
	SuccessThreshold int           `yaml:"success_threshold" validate:"min=1"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" validate:"min=0"`
}

// Sources controls span extraction from archive directories.
type Sources struct {
	Include       []string `yaml:"include"`
	Exclude       []string `yaml:"exclude"`
	MaxSpanLength int      `yaml:"max_span_length" validate:"min=0"`
	MaxFileBytes  int64    `yaml:"max_file_bytes" validate:"min=0"`
}

// Profile represents a named set of overrides. Zero values leave the
// defaults untouched.
type Profile struct {
	Description  string        `yaml:"description"`
	Format       string        `yaml:"format" validate:"omitempty,oneof=text json yaml csv sarif"`
	Workers      int           `yaml:"workers" validate:"omitempty,min=1,max=1000"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
	Backend      string        `yaml:"backend" validate:"omitempty,oneof=stub openai ollama none"`
	Model        string        `yaml:"model"`
	ShowEvidence bool          `yaml:"show_evidence"`
	FlaggedOnly  bool          `yaml:"flagged_only"`
	Verbose      bool          `yaml:"verbose"`
	NoColor      bool          `yaml:"no_color"`
	Include      []string      `yaml:"include"`
	Exclude      []string      `yaml:"exclude"`
}

// Default returns the built-in configuration.
func Default() *Config {
	retry := resilience.ModelRetryConfig()
	breaker := resilience.DefaultCircuitBreakerConfig("extractor")

	cfg := &Config{
		Defaults: Defaults{
			Format:       "text",
			Workers:      50,
			Backend:      "stub",
			ShowEvidence: true,
		},
		Extractor: Extractor{
			Temperature:       0,
			MaxRetries:        retry.MaxRetries,
			MalformedRetries:  retry.TypeBudgets[resilience.ErrorTypeMalformedResponse],
			InitialBackoff:    retry.InitialInterval,
			BackoffMultiplier: retry.Multiplier,
			CallTimeout:       60 * time.Second,
			CircuitBreaker: CircuitBreaker{
				Enabled:          true,
				FailureThreshold: breaker.FailureThreshold,
				SuccessThreshold: breaker.SuccessThreshold,
				ResetTimeout:     breaker.Timeout,
			},
		},
		Sources: Sources{
			Include:       []string{"**/*.tex", "**/*.sty", "**/*.cls", "**/*.bib", "**/*.pdf", "**/*.jpg", "**/*.jpeg", "**/*.tif", "**/*.tiff"},
			MaxSpanLength: 4096,
			MaxFileBytes:  64 << 20,
		},
		Profiles: make(map[string]Profile),
	}

	cfg.Profiles["quick"] = Profile{
		Description: "Structural signatures only; no language-model calls",
		Backend:     "none",
		FlaggedOnly: true,
	}
	cfg.Profiles["audit"] = Profile{
		Description:  "Full review with evidence, one flagged span per line",
		Backend:      "openai",
		ShowEvidence: true,
		Verbose:      true,
	}
	return cfg
}

// LoadConfig loads configuration from the specified file path. An empty
// path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Keys absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// ValidateConfig checks field constraints and cross-field rules.
func ValidateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return formatValidationError(err)
	}
	if config.Extractor.APIKeyEnv != "" && strings.ContainsAny(config.Extractor.APIKeyEnv, " =") {
		return fmt.Errorf("extractor.api_key_env must name an environment variable, got %q", config.Extractor.APIKeyEnv)
	}
	return nil
}

// formatValidationError turns validator errors into one line per field.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// FindConfigFile looks for a configuration file in the working directory,
// then in the user configuration directory.
func FindConfigFile() string {
	for _, name := range []string{"leakaudit.yaml", "leakaudit.yml", ".leakaudit.yaml", ".leakaudit.yml"} {
		if fileExists(name) {
			return name
		}
	}
	if standard := paths.GetConfigFile(); standard != "" && fileExists(standard) {
		return standard
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// LoadConfigOrDefault loads configFile, or the discovered file when empty.
// Any failure is reported on stderr and the defaults are returned.
func LoadConfigOrDefault(configFile string) *Config {
	if configFile == "" {
		configFile = FindConfigFile()
	}
	cfg, err := LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		return Default()
	}
	return cfg
}

// ListProfiles returns the available profile names, sorted.
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays the named profile onto the defaults and source
// settings.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}
	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	if p.Workers > 0 {
		c.Defaults.Workers = p.Workers
	}
	if p.Timeout > 0 {
		c.Defaults.Timeout = p.Timeout
	}
	if p.Backend != "" {
		c.Defaults.Backend = p.Backend
		c.Extractor.Backend = p.Backend
	}
	if p.Model != "" {
		c.Extractor.Model = p.Model
	}
	if p.ShowEvidence {
		c.Defaults.ShowEvidence = true
	}
	if p.FlaggedOnly {
		c.Defaults.FlaggedOnly = true
	}
	if p.Verbose {
		c.Defaults.Verbose = true
	}
	if p.NoColor {
		c.Defaults.NoColor = true
	}
	if len(p.Include) > 0 {
		c.Sources.Include = p.Include
	}
	if len(p.Exclude) > 0 {
		c.Sources.Exclude = p.Exclude
	}
	return nil
}

// EffectiveBackend is the extractor section's backend when set, otherwise
// the default backend.
func (c *Config) EffectiveBackend() string {
	if c.Extractor.Backend != "" {
		return c.Extractor.Backend
	}
	return c.Defaults.Backend
}

// RetryConfig returns the retry schedule for extractor calls.
func (e Extractor) RetryConfig() resilience.RetryConfig {
	rc := resilience.ModelRetryConfig()
	rc.MaxRetries = e.MaxRetries
	if e.InitialBackoff > 0 {
		rc.InitialInterval = e.InitialBackoff
	}
	if e.BackoffMultiplier >= 1 {
		rc.Multiplier = e.BackoffMultiplier
	}
	rc.TypeBudgets = map[resilience.ErrorType]int{resilience.ErrorTypeMalformedResponse: e.MalformedRetries}
	return rc
}

// BreakerConfig returns the circuit breaker settings, or false when the
// breaker is disabled.
func (e Extractor) BreakerConfig() (resilience.CircuitBreakerConfig, bool) {
	cb := resilience.DefaultCircuitBreakerConfig("extractor")
	if !e.CircuitBreaker.Enabled {
		return cb, false
	}
	cb.FailureThreshold = e.CircuitBreaker.FailureThreshold
	cb.SuccessThreshold = e.CircuitBreaker.SuccessThreshold
	if e.CircuitBreaker.ResetTimeout > 0 {
		cb.Timeout = e.CircuitBreaker.ResetTimeout
	}
	return cb, true
}
