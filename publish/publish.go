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

// Package publish republishes artifacts found above a source context under
// virtual paths inside it, so an analyzer that only sees the context still
// sees its configuration and dependencies.
package publish

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/tsvirt/contenttype"
	"bennypowers.dev/tsvirt/fs"
	"bennypowers.dev/tsvirt/locate"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/sourceroot"
	"bennypowers.dev/tsvirt/tsconfig"
	"bennypowers.dev/tsvirt/vpath"
)

// ErrNoVirtualBase is returned when the parent of the source root lies
// outside the context, so there is no directory to publish into.
var ErrNoVirtualBase = errors.New("source root parent is outside the context")

// tempPattern names the temporary copy of a rewritten manifest.
const tempPattern = "tsvirt-*-" + tsconfig.FileName

// Publisher hands artifacts to an Ingester under virtual paths.
type Publisher struct {
	fs         fs.FileSystem
	ingester   Ingester
	detector   contenttype.Detector
	logger     project.Logger
	sourceType string
}

// New creates a Publisher. A nil detector uses the default content type
// rules; logger may be nil.
func New(fsys fs.FileSystem, ingester Ingester, detector contenttype.Detector, logger project.Logger) *Publisher {
	if detector == nil {
		detector, _ = contenttype.NewPatternDetector()
	}
	return &Publisher{
		fs:         fsys,
		ingester:   ingester,
		detector:   detector,
		logger:     project.OrNop(logger),
		sourceType: contenttype.TypeScript,
	}
}

// WithSourceType returns a copy of the publisher that republishes directory
// contents of content type t.
func (p *Publisher) WithSourceType(t string) *Publisher {
	clone := *p
	clone.sourceType = t
	return &clone
}

// VirtualBase returns the virtual directory that outside artifacts are
// published into: the source root's parent relative to the context root,
// with a trailing slash unless empty.
func VirtualBase(pc project.Context, root *sourceroot.Root) (string, error) {
	parent := filepath.Dir(root.Dir)
	rel, ok := vpath.Rel(pc.Root, parent)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoVirtualBase, parent)
	}
	return vpath.Base(rel), nil
}

// Publish republishes every artifact loc found outside the context. Files
// are published as they are, except the manifest, which is rewritten for
// its new location first. Directories are walked and only files of the
// source content type are published. Nothing is published twice within
// one State.
//
// ErrNoVirtualBase is logged and returned before anything is published.
// A manifest whose sourceRoot cannot be rewritten is logged and skipped.
// Read, write and ingest failures are returned.
func (p *Publisher) Publish(ctx context.Context, pc project.Context, loc *locate.Result, root *sourceroot.Root, state *State) error {
	if len(loc.Outside) == 0 {
		return nil
	}

	base, err := VirtualBase(pc, root)
	if err != nil {
		p.logger.Error("Cannot publish into %s: %v", pc.Root, err)
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(loc.Outside)) {
		location := loc.Outside[name]
		virtualPath := base + name

		info, err := p.fs.Stat(location)
		if err != nil {
			return fmt.Errorf("publishing %s: %w", location, err)
		}
		if info.IsDir() {
			err = p.publishDir(ctx, pc, location, virtualPath, state)
		} else {
			err = p.publishFile(ctx, pc, name, location, virtualPath, base, root, state)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishDir(ctx context.Context, pc project.Context, dir, virtualDir string, state *State) error {
	entries, err := p.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		childVP := vpath.Join(virtualDir, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&iofs.ModeSymlink != 0 {
			info, err := p.fs.Stat(child)
			if err != nil {
				p.logger.Debug("Skipping broken link %s", child)
				continue
			}
			if info.IsDir() {
				p.logger.Debug("Not following directory link %s", child)
				continue
			}
			isDir = false
		}

		if isDir {
			if err := p.publishDir(ctx, pc, child, childVP, state); err != nil {
				return err
			}
			continue
		}

		if p.detector.ContentType(child) != p.sourceType {
			continue
		}
		content, err := p.fs.ReadFile(child)
		if err != nil {
			return fmt.Errorf("reading %s: %w", child, err)
		}
		if err := p.ingest(ctx, pc, child, childVP, content, state); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishFile(ctx context.Context, pc project.Context, name, location, virtualPath, base string, root *sourceroot.Root, state *State) error {
	if state.Has(virtualPath) {
		return nil
	}

	if name != locate.TSConfig {
		content, err := p.fs.ReadFile(location)
		if err != nil {
			return fmt.Errorf("reading %s: %w", location, err)
		}
		return p.ingest(ctx, pc, location, virtualPath, content, state)
	}

	content, ok, err := p.manifestSnapshot(pc, location, base, root)
	if err != nil || !ok {
		return err
	}
	return p.ingest(ctx, pc, location, virtualPath, content, state)
}

func (p *Publisher) ingest(ctx context.Context, pc project.Context, location, virtualPath string, content []byte, state *State) error {
	if state.Has(virtualPath) {
		return nil
	}
	if prior, ok := state.virtualPathOf(location); ok {
		p.logger.Debug("%s is already published as %s", location, prior)
		return nil
	}
	if err := p.ingester.Ingest(ctx, pc, virtualPath, content); err != nil {
		return fmt.Errorf("ingesting %s: %w", virtualPath, err)
	}
	state.record(virtualPath, location)
	p.logger.Debug("Added virtual file %s for %s", virtualPath, location)
	return nil
}

// manifestSnapshot rewrites the manifest at location for the virtual directory
// base and returns the rewritten bytes as read back from a temporary file.
// ok is false when the manifest cannot be rewritten consistently.
func (p *Publisher) manifestSnapshot(pc project.Context, location, base string, root *sourceroot.Root) (content []byte, ok bool, err error) {
	m := root.Manifest
	if m == nil || root.ManifestPath != location {
		if m, err = tsconfig.ParseFile(p.fs, location); err != nil {
			return nil, false, err
		}
	}

	realParent := filepath.Dir(location)
	virtualAbs := strings.TrimSuffix(filepath.ToSlash(pc.Root), "/") + "/" + base
	delta, err := vpath.Delta(realParent, virtualAbs)
	if err != nil {
		p.logger.Warning("%v; continuing with delta %q", err, delta)
	}
	p.logger.Debug("Manifest %s moves down by %q", location, delta)

	rewritten, err := tsconfig.Rewrite(m, delta)
	if errors.Is(err, vpath.ErrSourceRootMismatch) {
		p.logger.Error("Not publishing %s: %v", location, err)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rewriting %s: %w", location, err)
	}

	tmp, err := p.fs.WriteTemp(p.fs.TempDir(), tempPattern, rewritten)
	if err != nil {
		return nil, false, fmt.Errorf("writing rewritten %s: %w", location, err)
	}
	defer func() {
		if rerr := p.fs.Remove(tmp); rerr != nil {
			p.logger.Warning("Could not remove %s: %v", tmp, rerr)
		}
	}()

	content, err = p.fs.ReadFile(tmp)
	if err != nil {
		return nil, false, fmt.Errorf("reading rewritten %s: %w", location, err)
	}
	return content, true, nil
}
