/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package scan runs the locate, resolve and publish pipeline for source
// contexts.
package scan

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"bennypowers.dev/tsvirt/contenttype"
	"bennypowers.dev/tsvirt/fs"
	"bennypowers.dev/tsvirt/locate"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/publish"
	"bennypowers.dev/tsvirt/sourceroot"
	"bennypowers.dev/tsvirt/tsconfig"
)

// Result describes one scanned context.
type Result struct {
	Context project.Context `json:"context" yaml:"context"`
	// Relevant is true when a source root was resolved for the context.
	Relevant bool `json:"relevant" yaml:"relevant"`
	// SourceRootRel is the source root relative to the context root.
	// Only meaningful when Relevant.
	SourceRootRel string            `json:"sourceRoot" yaml:"sourceRoot"`
	Inside        map[string]string `json:"inside,omitempty" yaml:"inside,omitempty"`
	Outside       map[string]string `json:"outside,omitempty" yaml:"outside,omitempty"`
	Missing       []string          `json:"missing,omitempty" yaml:"missing,omitempty"`
	// Published maps virtual paths to the real files they stand for.
	Published map[string]string `json:"published,omitempty" yaml:"published,omitempty"`
}

// IsTSContext reports whether the context is a TypeScript context.
func (r *Result) IsTSContext() bool {
	return r.Relevant
}

// IsFileExternal reports whether virtualPath was published from outside
// the context.
func (r *Result) IsFileExternal(virtualPath string) bool {
	_, ok := r.Published[virtualPath]
	return ok
}

// Scanner scans source contexts.
type Scanner struct {
	fs         fs.FileSystem
	owner      project.Owner
	ingester   publish.Ingester
	logger     project.Logger
	artifacts  []string
	skip       []string
	detector   contenttype.Detector
	cache      tsconfig.Cache
	sourceType string
}

// New creates a Scanner. logger may be nil.
func New(fsys fs.FileSystem, owner project.Owner, ingester publish.Ingester, logger project.Logger) *Scanner {
	return &Scanner{
		fs:         fsys,
		owner:      owner,
		ingester:   ingester,
		logger:     project.OrNop(logger),
		artifacts:  locate.DefaultArtifacts,
		skip:       locate.DefaultSkip,
		sourceType: contenttype.TypeScript,
	}
}

func (s *Scanner) clone() *Scanner {
	c := *s
	return &c
}

// WithArtifacts returns a copy of the scanner that looks for names instead
// of locate.DefaultArtifacts.
func (s *Scanner) WithArtifacts(names []string) *Scanner {
	c := s.clone()
	c.artifacts = slices.Clone(names)
	return c
}

// WithSkip returns a copy of the scanner that never descends into
// directories with the given names inside a context.
func (s *Scanner) WithSkip(names []string) *Scanner {
	c := s.clone()
	c.skip = slices.Clone(names)
	return c
}

// WithDetector returns a copy of the scanner using d for content types.
func (s *Scanner) WithDetector(d contenttype.Detector) *Scanner {
	c := s.clone()
	c.detector = d
	return c
}

// WithCache returns a copy of the scanner that loads manifests through cache.
func (s *Scanner) WithCache(cache tsconfig.Cache) *Scanner {
	c := s.clone()
	c.cache = cache
	return c
}

// WithSourceType returns a copy of the scanner that republishes files of
// content type t out of dependency directories.
func (s *Scanner) WithSourceType(t string) *Scanner {
	c := s.clone()
	c.sourceType = t
	return c
}

// Scan runs one pass over the context rooted at root.
//
// A context without an owning project, without a manifest, or whose
// manifest is unusable yields a Result that is not Relevant and no error.
// Errors are returned only for I/O and ingestion failures; the Result then
// holds whatever was established before the failure.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	pc, owned := project.NewContext(s.owner, root)
	result := &Result{Context: pc}
	if !owned {
		s.logger.Debug("No project owns %s", pc.Root)
		return result, nil
	}

	loc := locate.New(s.fs, s.logger).WithSkip(s.skip).Locate(pc, s.artifacts)
	result.Inside = loc.Inside
	result.Outside = loc.Outside
	result.Missing = loc.Missing

	resolver := sourceroot.New(s.fs, s.logger)
	if s.cache != nil {
		resolver = resolver.WithCache(s.cache)
	}
	sr, err := resolver.Resolve(pc, loc)
	if errors.Is(err, sourceroot.ErrIrrelevant) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("scanning %s: %w", pc.Root, err)
	}
	result.Relevant = true
	result.SourceRootRel = sr.RelPath

	state := publish.NewState()
	err = publish.New(s.fs, s.ingester, s.detector, s.logger).
		WithSourceType(s.sourceType).
		Publish(ctx, pc, loc, sr, state)
	result.Published = state.Published()
	if errors.Is(err, publish.ErrNoVirtualBase) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("scanning %s: %w", pc.Root, err)
	}
	return result, nil
}
