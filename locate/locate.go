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

// Package locate finds the files and directories a TypeScript source context
// depends on, first inside the context and then beside the context's
// ancestors up to the project root.
package locate

import (
	"path/filepath"
	"slices"

	"bennypowers.dev/tsvirt/fs"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/vpath"
)

// Required artifact names.
const (
	TSConfig    = "tsconfig.json"
	NodeModules = "node_modules"
	TypingsJSON = "typings.json"
	Typings     = "typings"
)

// DefaultArtifacts is the ordered list of artifacts a scan looks for.
var DefaultArtifacts = []string{TSConfig, NodeModules, TypingsJSON, Typings}

// DefaultSkip lists directory names never descended into inside the context.
var DefaultSkip = []string{".git"}

// Result maps artifact names to where they were found.
type Result struct {
	// Inside holds artifacts found within the source context.
	Inside map[string]string
	// Outside holds artifacts found beside an ancestor of the source
	// context, inside the project.
	Outside map[string]string
	// Missing lists artifacts found nowhere, in request order.
	Missing []string
}

// Lookup returns the location of an artifact, wherever it was found.
func (r *Result) Lookup(name string) (string, bool) {
	if p, ok := r.Inside[name]; ok {
		return p, true
	}
	p, ok := r.Outside[name]
	return p, ok
}

// IsOutside reports whether the artifact was found outside the context.
func (r *Result) IsOutside(name string) bool {
	_, ok := r.Outside[name]
	return ok
}

// Found returns the number of artifacts located.
func (r *Result) Found() int {
	return len(r.Inside) + len(r.Outside)
}

// Locator searches for required artifacts.
type Locator struct {
	fs     fs.FileSystem
	logger project.Logger
	skip   []string
}

// New creates a Locator.
func New(fsys fs.FileSystem, logger project.Logger) *Locator {
	return &Locator{
		fs:     fsys,
		logger: project.OrNop(logger),
		skip:   DefaultSkip,
	}
}

// WithSkip returns a new Locator that never descends into directories with
// the given names while searching the context.
func (l *Locator) WithSkip(names []string) *Locator {
	return &Locator{
		fs:     l.fs,
		logger: l.logger,
		skip:   names,
	}
}

// Locate finds each named artifact for the context. Names are matched
// exactly against directory entry names, files and directories alike.
// Artifacts that cannot be found are reported in Result.Missing and logged;
// that is never an error.
func (l *Locator) Locate(pc project.Context, names []string) *Result {
	result := &Result{
		Inside:  make(map[string]string),
		Outside: make(map[string]string),
	}

	remaining := newRemaining(names)
	l.findInContext(pc.Root, remaining, result.Inside)

	if !remaining.empty() && pc.Owned() {
		l.findAboveContext(pc, remaining, result.Outside)
	}

	result.Missing = remaining.names
	if len(result.Missing) > 0 {
		l.logger.Error("Required files not found in project %s: %v", pc.ProjectRoot, result.Missing)
	}
	return result
}

// findInContext searches dir and its subtree depth-first, checking every
// entry of a directory before descending. Each directory is listed at most
// once, and the walk stops as soon as nothing remains.
func (l *Locator) findInContext(dir string, remaining *remaining, found map[string]string) {
	if remaining.empty() {
		return
	}

	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		l.logger.Warning("Cannot list %s: %v", dir, err)
		return
	}

	var subdirs []string
	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())
		if remaining.take(entry.Name()) {
			found[entry.Name()] = entryPath
			l.logger.Info("Required TS project file found: %s", entryPath)
		}
		if entry.IsDir() && !slices.Contains(l.skip, entry.Name()) {
			subdirs = append(subdirs, entryPath)
		}
	}

	for _, subdir := range subdirs {
		if remaining.empty() {
			return
		}
		l.findInContext(subdir, remaining, found)
	}
}

// findAboveContext looks at the immediate entries of each ancestor of the
// context root, nearest first, while the ancestor is still inside the
// project.
func (l *Locator) findAboveContext(pc project.Context, remaining *remaining, found map[string]string) {
	for dir := project.Parent(pc.Root); dir != "" && !remaining.empty(); dir = project.Parent(dir) {
		if _, inside := vpath.Rel(pc.ProjectRoot, dir); !inside {
			return
		}

		entries, err := l.fs.ReadDir(dir)
		if err != nil {
			l.logger.Warning("Cannot list %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			if remaining.take(entry.Name()) {
				entryPath := filepath.Join(dir, entry.Name())
				found[entry.Name()] = entryPath
				l.logger.Info("Required TS project file found outside source context: %s", entryPath)
			}
		}
	}
}

// remaining is the ordered set of artifact names still to be found.
type remaining struct {
	names []string
}

func newRemaining(names []string) *remaining {
	r := &remaining{}
	for _, name := range names {
		if !slices.Contains(r.names, name) {
			r.names = append(r.names, name)
		}
	}
	return r
}

// take removes name from the set, reporting whether it was still wanted.
func (r *remaining) take(name string) bool {
	i := slices.Index(r.names, name)
	if i < 0 {
		return false
	}
	r.names = slices.Delete(r.names, i, i+1)
	return true
}

func (r *remaining) empty() bool {
	return len(r.names) == 0
}
