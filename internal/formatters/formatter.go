// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"leakaudit/internal/verdict"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	FlaggedOnly    bool // Omit records whose verdict is {none}
	Verbose        bool // Include annotations and provenance details
	NoColor        bool // Whether to disable colored output
	RedactEvidence bool // Replace evidence substrings with a placeholder
	Compact        bool // One record per line where the format allows it
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// Format renders records, which arrive in export order.
	Format(records []verdict.Record, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".txt", ".csv")
	FileExtension() string
}

// Registry maps format names to formatters. Formatters register themselves
// from init, so lookups take a read lock.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[string]Formatter)}
}

// Register adds formatter, replacing any formatter of the same name.
func (r *Registry) Register(formatter Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[formatter.Name()] = formatter
}

func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formatter, ok := r.formatters[strings.ToLower(name)]
	return formatter, ok
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForPath picks the formatter whose extension matches path, so that
// "-output findings.sarif" needs no "-format".
func (r *Registry) ForPath(path string) (Formatter, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	if ext == ".yml" {
		ext = ".yaml"
	}
	for _, name := range r.List() {
		f, _ := r.Get(name)
		if f.FileExtension() == ext {
			return f, true
		}
	}
	return nil, false
}

// FormatInfo provides metadata about a formatter
type FormatInfo struct {
	Name        string
	Description string
	Extension   string
	MimeType    string
}

// DefaultRegistry holds the formatters linked into the binary.
var DefaultRegistry = NewRegistry()

func Register(formatter Formatter) { DefaultRegistry.Register(formatter) }

func Get(name string) (Formatter, bool) { return DefaultRegistry.Get(name) }

func List() []string { return DefaultRegistry.List() }

// FormatForPath returns the format name implied by an output path.
func FormatForPath(path string) (string, bool) {
	f, ok := DefaultRegistry.ForPath(path)
	if !ok {
		return "", false
	}
	return f.Name(), true
}

// Export renders records with the named formatter.
func Export(format string, records []verdict.Record, options FormatterOptions) (string, error) {
	formatter, exists := Get(format)
	if !exists {
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter.Format(records, options)
}

// GetFormatInfo returns metadata about a specific formatter
func GetFormatInfo(name string) FormatInfo {
	formatter, exists := Get(name)
	if !exists {
		return FormatInfo{}
	}

	info := FormatInfo{
		Name:        formatter.Name(),
		Description: formatter.Description(),
		Extension:   formatter.FileExtension(),
	}

	info.MimeType = mimeTypes[info.Name]
	if info.MimeType == "" {
		info.MimeType = "application/octet-stream"
	}
	return info
}

var mimeTypes = map[string]string{
	"json":  "application/json",
	"csv":   "text/csv",
	"yaml":  "application/x-yaml",
	"text":  "text/plain",
	"sarif": "application/sarif+json",
}

// GetSupportedFormats returns information about all available formatters
func GetSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		formats = append(formats, GetFormatInfo(name))
	}
	return formats
}
