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

// Package project models the source context under analysis and the project
// that owns it.
package project

import (
	"path/filepath"

	"bennypowers.dev/tsvirt/fs"
	"bennypowers.dev/tsvirt/vpath"
)

// Context is one analysis unit: the source context root plus the root of the
// project that owns it. An empty ProjectRoot means no project owns the
// context, and nothing is located or published for it.
type Context struct {
	Root        string `json:"root" yaml:"root"`
	ProjectRoot string `json:"projectRoot,omitempty" yaml:"projectRoot,omitempty"`
}

// Owned reports whether the context has an owning project.
func (c Context) Owned() bool {
	return c.ProjectRoot != ""
}

// Owner resolves the project that owns a directory.
type Owner interface {
	// OwnerOf returns the owning project root of dir, or false if none.
	OwnerOf(dir string) (string, bool)
}

// DefaultMarkers are the entries whose presence marks a project root.
var DefaultMarkers = []string{".git", "package.json"}

// MarkerOwner finds the nearest directory, starting at dir itself and
// walking up, that contains one of its marker entries.
type MarkerOwner struct {
	fs      fs.FileSystem
	markers []string
}

// NewMarkerOwner creates a MarkerOwner. With no markers, DefaultMarkers is used.
func NewMarkerOwner(fsys fs.FileSystem, markers ...string) *MarkerOwner {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	return &MarkerOwner{fs: fsys, markers: markers}
}

// OwnerOf implements Owner.
func (o *MarkerOwner) OwnerOf(dir string) (string, bool) {
	for dir != "" {
		for _, marker := range o.markers {
			if o.fs.Exists(filepath.Join(dir, marker)) {
				return dir, true
			}
		}
		dir = Parent(dir)
	}
	return "", false
}

// FixedOwner reports a single configured root as the owner of every
// directory inside it.
type FixedOwner struct {
	Root string
}

// OwnerOf implements Owner.
func (o FixedOwner) OwnerOf(dir string) (string, bool) {
	root := filepath.Clean(o.Root)
	if _, ok := vpath.Rel(root, dir); !ok {
		return "", false
	}
	return root, true
}

// NewContext builds the Context for a source root, asking owner for its
// project. The boolean is false when no project owns root.
func NewContext(owner Owner, root string) (Context, bool) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	ctx := Context{Root: abs}
	if owner == nil {
		return ctx, false
	}
	projectRoot, ok := owner.OwnerOf(abs)
	if !ok {
		return ctx, false
	}
	ctx.ProjectRoot = projectRoot
	return ctx, true
}

// Parent returns the parent directory of dir, or "" at the filesystem root.
func Parent(dir string) string {
	parent := filepath.Dir(dir)
	if parent == dir {
		return ""
	}
	return parent
}
