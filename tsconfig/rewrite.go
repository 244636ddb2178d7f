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

package tsconfig

import (
	"fmt"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"bennypowers.dev/tsvirt/vpath"
)

// Rewrite returns a copy of the manifest adjusted for a new location delta
// directories below its real parent. sourceRoot loses the delta prefix and
// outDir gains one "../" per delta segment; the original values are kept
// under the shadow keys.
//
// Manifests without compilerOptions, without either path option, or with
// shadow keys already present are serialized unchanged. A sourceRoot that
// does not start with delta is an error wrapping vpath.ErrSourceRootMismatch.
func Rewrite(m *Manifest, delta string) ([]byte, error) {
	out := m.Bytes()
	if !m.HasCompilerOptions() || m.Rewritten() {
		return serialize(out), nil
	}

	sourceRoot, hasSourceRoot := m.SourceRoot()
	outDir, hasOutDir := m.OutDir()
	if !hasSourceRoot && !hasOutDir {
		return serialize(out), nil
	}

	var err error
	if hasSourceRoot {
		shortened, serr := vpath.ShortenSourceRoot(sourceRoot, delta)
		if serr != nil {
			return nil, fmt.Errorf("rewriting compilerOptions.sourceRoot: %w", serr)
		}
		if out, err = setOption(out, ShadowSourceRoot, sourceRoot); err != nil {
			return nil, err
		}
		if out, err = setOption(out, "sourceRoot", shortened); err != nil {
			return nil, err
		}
	}

	if hasOutDir {
		if out, err = setOption(out, ShadowOutDir, outDir); err != nil {
			return nil, err
		}
		if out, err = setOption(out, "outDir", vpath.ExtendOutDir(outDir, delta)); err != nil {
			return nil, err
		}
	}

	return serialize(out), nil
}

// Serialize returns the manifest as compact JSON without escaped slashes.
func Serialize(m *Manifest) []byte {
	return serialize(m.Bytes())
}

func setOption(data []byte, name, value string) ([]byte, error) {
	out, err := sjson.SetBytes(data, "compilerOptions."+escapeKey(name), value)
	if err != nil {
		return nil, fmt.Errorf("setting compilerOptions.%s: %w", name, err)
	}
	return out, nil
}

func serialize(data []byte) []byte {
	return unescapeSlashes(pretty.Ugly(data))
}

// unescapeSlashes turns each escaped "\/" into "/". A slash preceded by an
// escaped backslash ("\\/") is left alone.
func unescapeSlashes(data []byte) []byte {
	out := make([]byte, 0, len(data))
	backslashes := 0
	for _, c := range data {
		switch {
		case c == '\\':
			backslashes++
			out = append(out, c)
			continue
		case c == '/' && backslashes%2 == 1:
			out = out[:len(out)-1]
		}
		backslashes = 0
		out = append(out, c)
	}
	return out
}
