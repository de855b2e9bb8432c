// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package spansource

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"leakaudit/internal/span"
)

// WalkConfig controls an archive walk.
type WalkConfig struct {
	// Root is the unpacked archive directory.
	Root string
	// DocumentID names the archive in every span. Defaults to the base name
	// of Root.
	DocumentID string
	Include    []string
	Exclude    []string
	// MaxFileBytes skips larger files. Zero means no limit.
	MaxFileBytes int64
}

// FileError reports a file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

// Walk extracts spans from every eligible file below cfg.Root. Unreadable
// files are reported in the returned slice and do not stop the walk.
func (m *Manager) Walk(ctx context.Context, cfg WalkConfig) ([]span.Span, []FileError, error) {
	docID := cfg.DocumentID
	if docID == "" {
		docID = filepath.Base(filepath.Clean(cfg.Root))
	}

	var spans []span.Span
	var problems []FileError
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			problems = append(problems, FileError{Path: p, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != cfg.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(cfg.Root, p)
		if relErr != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)
		if !AllowedByGlobs(rel, cfg.Include, cfg.Exclude) || !m.CanProcess(p) {
			return nil
		}
		if cfg.MaxFileBytes > 0 {
			if info, infoErr := d.Info(); infoErr == nil && info.Size() > cfg.MaxFileBytes {
				return nil
			}
		}

		found, extractErr := m.ExtractFile(docID, p, rel)
		if extractErr != nil {
			problems = append(problems, FileError{Path: rel, Err: extractErr})
		}
		spans = append(spans, found...)
		return nil
	})
	return spans, problems, err
}

// AllowedByGlobs applies include then exclude globs to a slash-separated
// relative path. Globs match either the full path or the base name.
func AllowedByGlobs(rel string, include, exclude []string) bool {
	if len(include) > 0 && !matchAnyGlob(rel, include) {
		return false
	}
	return len(exclude) == 0 || !matchAnyGlob(rel, exclude)
}

func matchAnyGlob(rel string, globs []string) bool {
	for _, g := range globs {
		g = strings.TrimPrefix(strings.TrimSpace(g), "./")
		if g == "" {
			continue
		}
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
