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

// Package vpath implements the path arithmetic behind virtual paths: paths
// relative to a source context root, the delta between a manifest's real
// directory and its virtual one, and the rewrites that delta implies for
// relative paths declared inside the manifest.
//
// Virtual paths and deltas always use forward slashes and never start with
// a slash.
package vpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrSourceRootMismatch is returned by ShortenSourceRoot when the delta is
// not a prefix of the source root, so no well-formed rewrite exists.
var ErrSourceRootMismatch = errors.New("delta path is not a prefix of sourceRoot")

// PrefixError reports that a virtual directory does not extend the real
// directory it was derived from.
type PrefixError struct {
	RealParent string
	VirtualAbs string
}

func (e *PrefixError) Error() string {
	return fmt.Sprintf("virtual path %s does not extend %s", e.VirtualAbs, e.RealParent)
}

// Rel returns target relative to base, forward-slashed, or false if target
// is neither base nor a descendant of it. Rel of a directory to itself is "".
func Rel(base, target string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return rel, true
}

// Base turns a context-relative directory into a virtual base that names
// can be appended to: "" stays "", anything else gains a trailing slash.
func Base(rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(rel, "/") + "/"
}

// Join extends a virtual directory path by one child name.
func Join(virtualDir, name string) string {
	if virtualDir == "" {
		return name
	}
	return strings.TrimSuffix(virtualDir, "/") + "/" + name
}

// Delta returns what remains of virtualAbs after removing the realParent
// prefix, with a leading slash stripped. A virtual base ends in a slash, so
// the delta usually does too ("src/").
//
// When virtualAbs does not extend realParent the best-effort suffix is
// still returned, together with a *PrefixError.
func Delta(realParent, virtualAbs string) (string, error) {
	realParent = filepath.ToSlash(realParent)
	virtualAbs = filepath.ToSlash(virtualAbs)

	var err error
	if !hasDirPrefix(virtualAbs, realParent) {
		err = &PrefixError{RealParent: realParent, VirtualAbs: virtualAbs}
	}
	n := min(len(realParent), len(virtualAbs))
	return strings.TrimPrefix(virtualAbs[n:], "/"), err
}

// Segments counts the non-empty slash-separated segments of a delta.
func Segments(delta string) int {
	count := 0
	for segment := range strings.SplitSeq(delta, "/") {
		if segment != "" {
			count++
		}
	}
	return count
}

// ShortenSourceRoot rewrites a sourceRoot for a manifest that moved delta
// levels down: the leading "./" is dropped, exactly len(delta) characters
// are removed from the front and "./" is put back.
// A sourceRoot that equals delta without its trailing slash becomes "./".
func ShortenSourceRoot(sourceRoot, delta string) (string, error) {
	normalized := trimDotSlash(sourceRoot)
	if !strings.HasPrefix(normalized+"/", delta) {
		return "", fmt.Errorf("%w: %q does not start with %q", ErrSourceRootMismatch, normalized, delta)
	}
	n := min(len(delta), len(normalized))
	return "./" + normalized[n:], nil
}

// ExtendOutDir rewrites an outDir for a manifest that moved delta levels
// down: one "../" is prepended per delta segment.
func ExtendOutDir(outDir, delta string) string {
	return strings.Repeat("../", Segments(delta)) + trimDotSlash(outDir)
}

// hasDirPrefix reports whether p is dir or lies below it.
func hasDirPrefix(p, dir string) bool {
	if !strings.HasPrefix(p, dir) {
		return false
	}
	if len(p) == len(dir) || strings.HasSuffix(dir, "/") {
		return true
	}
	return p[len(dir)] == '/'
}

// trimDotSlash removes a leading "./" from a path.
func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
