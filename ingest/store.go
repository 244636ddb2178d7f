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

// Package ingest provides sinks for republished files: an in-memory
// snapshot store and a client for a remote ingestion service.
package ingest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"bennypowers.dev/tsvirt/project"
)

// Snapshot is the last content ingested at a virtual path.
type Snapshot struct {
	Context      project.Context `json:"context" yaml:"context"`
	VirtualPath  string          `json:"virtualPath" yaml:"virtualPath"`
	Content      []byte          `json:"-" yaml:"-"`
	Language     string          `json:"language,omitempty" yaml:"language,omitempty"`
	SyntaxErrors bool            `json:"syntaxErrors,omitempty" yaml:"syntaxErrors,omitempty"`
}

// Store keeps snapshots in memory, keyed by context root and virtual path.
// A later ingest at the same key replaces the earlier snapshot.
// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]map[string]Snapshot
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]map[string]Snapshot)}
}

// Ingest stores a snapshot. TypeScript content is parsed to flag syntax
// errors; a file that does not parse is still stored.
func (s *Store) Ingest(ctx context.Context, pc project.Context, virtualPath string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := Snapshot{
		Context:     pc,
		VirtualPath: virtualPath,
		Content:     slices.Clone(content),
		Language:    languageOf(virtualPath),
	}
	if snapshot.Language != "" {
		snapshot.SyntaxErrors = hasSyntaxErrors(snapshot.Language, content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byPath, ok := s.snapshots[pc.Root]
	if !ok {
		byPath = make(map[string]Snapshot)
		s.snapshots[pc.Root] = byPath
	}
	byPath[virtualPath] = snapshot
	return nil
}

// Get returns the snapshot at a virtual path of a context.
func (s *Store) Get(contextRoot, virtualPath string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[contextRoot][virtualPath]
	return snapshot, ok
}

// Snapshots returns the snapshots of a context ordered by virtual path.
func (s *Store) Snapshots(contextRoot string) []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPath := s.snapshots[contextRoot]
	result := make([]Snapshot, 0, len(byPath))
	for _, snapshot := range byPath {
		result = append(result, snapshot)
	}
	slices.SortFunc(result, func(a, b Snapshot) int {
		return strings.Compare(a.VirtualPath, b.VirtualPath)
	})
	return result
}

// Reset drops every snapshot of a context.
func (s *Store) Reset(contextRoot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, contextRoot)
}
