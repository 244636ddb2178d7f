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

// Package sourceroot decides where the TypeScript sources of a context live,
// based on the tsconfig.json that was located for it.
package sourceroot

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/tsvirt/fs"
	"bennypowers.dev/tsvirt/locate"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/tsconfig"
	"bennypowers.dev/tsvirt/vpath"
)

// ErrIrrelevant marks a context that tsvirt does not handle. Every
// resolution failure other than an I/O error matches it with errors.Is.
var ErrIrrelevant = errors.New("context is not a TypeScript context")

var (
	// ErrNoManifest is returned when no tsconfig.json was located.
	ErrNoManifest = fmt.Errorf("%w: no %s located", ErrIrrelevant, tsconfig.FileName)
	// ErrOutsideContext is returned when the source root lies outside the
	// context it was resolved for.
	ErrOutsideContext = fmt.Errorf("%w: source root is outside the context", ErrIrrelevant)
)

// SegmentError reports a sourceRoot segment that does not lead to an
// existing directory.
type SegmentError struct {
	SourceRoot string
	Segment    string
	Dir        string
}

func (e *SegmentError) Error() string {
	if e.Segment == ".." {
		return fmt.Sprintf("sourceRoot %q climbs above the filesystem root", e.SourceRoot)
	}
	return fmt.Sprintf("sourceRoot %q: no directory %q in %s", e.SourceRoot, e.Segment, e.Dir)
}

// Is makes a SegmentError match ErrIrrelevant.
func (e *SegmentError) Is(target error) bool {
	return target == ErrIrrelevant
}

// Root is a resolved source root.
type Root struct {
	// Dir is the absolute source root directory.
	Dir string
	// RelPath is Dir relative to the context root; "" when they coincide.
	RelPath string
	// ManifestPath is where the manifest was found.
	ManifestPath string
	// Manifest is the parsed manifest.
	Manifest *tsconfig.Manifest
}

// Resolver resolves source roots.
type Resolver struct {
	fs     fs.FileSystem
	logger project.Logger
	cache  tsconfig.Cache
}

// New creates a Resolver. logger may be nil.
func New(fsys fs.FileSystem, logger project.Logger) *Resolver {
	return &Resolver{fs: fsys, logger: project.OrNop(logger)}
}

// WithCache returns a copy of the resolver that loads manifests through c.
func (r *Resolver) WithCache(c tsconfig.Cache) *Resolver {
	clone := *r
	clone.cache = c
	return &clone
}

// Resolve finds the source root declared by the located manifest.
// compilerOptions.sourceRoot is interpreted relative to the manifest's
// directory; without it the manifest's directory is the source root.
//
// Failures matching ErrIrrelevant mean the context should be left alone.
// A *tsconfig.ReadError means the manifest could not be read at all.
func (r *Resolver) Resolve(pc project.Context, loc *locate.Result) (*Root, error) {
	manifestPath, ok := loc.Lookup(locate.TSConfig)
	if !ok {
		return nil, ErrNoManifest
	}

	m, err := r.load(manifestPath)
	if err != nil {
		var readErr *tsconfig.ReadError
		if errors.As(err, &readErr) {
			return nil, err
		}
		r.logger.Error("Ignoring context %s: %v", pc.Root, err)
		return nil, fmt.Errorf("%w: %w", ErrIrrelevant, err)
	}

	dir := filepath.Dir(manifestPath)
	if sourceRoot, ok := m.SourceRoot(); ok {
		dir, err = r.walk(dir, sourceRoot)
		if err != nil {
			r.logger.Error("Ignoring context %s: %s: %v", pc.Root, manifestPath, err)
			return nil, err
		}
	}

	rel, ok := vpath.Rel(pc.Root, dir)
	if !ok {
		r.logger.Debug("Source root %s is outside context %s", dir, pc.Root)
		return nil, fmt.Errorf("%w: %s", ErrOutsideContext, dir)
	}

	r.logger.Debug("Source root of %s is %q", pc.Root, rel)
	return &Root{
		Dir:          dir,
		RelPath:      rel,
		ManifestPath: manifestPath,
		Manifest:     m,
	}, nil
}

func (r *Resolver) load(path string) (*tsconfig.Manifest, error) {
	if r.cache == nil {
		return tsconfig.ParseFile(r.fs, path)
	}
	return r.cache.GetOrLoad(path, func() (*tsconfig.Manifest, error) {
		return tsconfig.ParseFile(r.fs, path)
	})
}

// walk applies the segments of sourceRoot to a cursor starting at dir.
func (r *Resolver) walk(dir, sourceRoot string) (string, error) {
	for segment := range strings.SplitSeq(sourceRoot, "/") {
		switch segment {
		case "", ".":
		case "..":
			parent := project.Parent(dir)
			if parent == "" {
				return "", &SegmentError{SourceRoot: sourceRoot, Segment: segment, Dir: dir}
			}
			dir = parent
		default:
			next := filepath.Join(dir, segment)
			info, err := r.fs.Stat(next)
			if err != nil || !info.IsDir() {
				return "", &SegmentError{SourceRoot: sourceRoot, Segment: segment, Dir: dir}
			}
			dir = next
		}
	}
	return dir, nil
}
