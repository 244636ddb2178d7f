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

// Package tsconfig reads tsconfig.json manifests and rewrites the relative
// paths they declare when a manifest is republished somewhere else.
//
// A Manifest keeps the original JSON text. Lookups go through gjson and
// edits through sjson, so fields tsvirt does not interpret pass through
// untouched and in their original order.
package tsconfig

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"bennypowers.dev/tsvirt/fs"
)

// FileName is the manifest's file name.
const FileName = "tsconfig.json"

// Shadow keys hold the original compilerOptions values once a manifest has
// been rewritten. Their presence marks a manifest as already rewritten.
const (
	ShadowSourceRoot = "--sourceRootOriginal"
	ShadowOutDir     = "--outDirOriginal"
)

var (
	// ErrMalformed is returned for content that is not valid JSON.
	ErrMalformed = errors.New("tsconfig.json is not valid JSON")
	// ErrNotObject is returned for valid JSON that is not an object.
	ErrNotObject = errors.New("tsconfig.json does not contain a JSON object")
)

// ReadError wraps a failure to read a manifest from disk.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Manifest is a parsed tsconfig.json. It is never modified after parsing.
type Manifest struct {
	// Path is where the manifest was read from; empty for Parse.
	Path string
	raw  []byte
}

// Parse parses manifest data. Only a JSON object is accepted.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, ErrNotObject
	}
	return &Manifest{raw: pretty.Ugly(data)}, nil
}

// ParseFile reads and parses a manifest. Read failures are *ReadError.
func ParseFile(fs fs.FileSystem, path string) (*Manifest, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Bytes returns a copy of the manifest's compact JSON text.
func (m *Manifest) Bytes() []byte {
	return append([]byte(nil), m.raw...)
}

// HasCompilerOptions reports whether compilerOptions is present as an object.
func (m *Manifest) HasCompilerOptions() bool {
	return gjson.GetBytes(m.raw, "compilerOptions").IsObject()
}

// CompilerOption returns a string-valued compiler option.
func (m *Manifest) CompilerOption(name string) (string, bool) {
	if !m.HasCompilerOptions() {
		return "", false
	}
	value := gjson.GetBytes(m.raw, "compilerOptions."+escapeKey(name))
	if value.Type != gjson.String {
		return "", false
	}
	return value.String(), true
}

// SourceRoot returns compilerOptions.sourceRoot.
func (m *Manifest) SourceRoot() (string, bool) {
	return m.CompilerOption("sourceRoot")
}

// OutDir returns compilerOptions.outDir.
func (m *Manifest) OutDir() (string, bool) {
	return m.CompilerOption("outDir")
}

// Rewritten reports whether either shadow key is present.
func (m *Manifest) Rewritten() bool {
	if !m.HasCompilerOptions() {
		return false
	}
	options := gjson.GetBytes(m.raw, "compilerOptions")
	return options.Get(escapeKey(ShadowSourceRoot)).Exists() || options.Get(escapeKey(ShadowOutDir)).Exists()
}

// escapeKey escapes gjson/sjson path syntax in a single object key.
func escapeKey(key string) string {
	var escaped []byte
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, key[i])
	}
	return string(escaped)
}
