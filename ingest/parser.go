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

package ingest

import (
	"path"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Snapshot languages.
const (
	LanguageTypeScript = "typescript"
	LanguageTSX        = "tsx"
)

var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTypescript()),
	ts.NewLanguage(tsTypescript.LanguageTSX()),
}

var (
	tsParserPool = sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(languages.typescript); err != nil {
				panic("failed to set TypeScript language: " + err.Error())
			}
			return parser
		},
	}

	tsxParserPool = sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(languages.tsx); err != nil {
				panic("failed to set TSX language: " + err.Error())
			}
			return parser
		},
	}
)

// languageOf returns the snapshot language for a virtual path, or "" for
// files that are not TypeScript.
func languageOf(virtualPath string) string {
	switch strings.ToLower(path.Ext(virtualPath)) {
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTSX
	}
	return ""
}

// hasSyntaxErrors parses content and reports whether the tree contains
// error or missing nodes.
func hasSyntaxErrors(language string, content []byte) bool {
	pool := &tsParserPool
	if language == LanguageTSX {
		pool = &tsxParserPool
	}

	parser := pool.Get().(*ts.Parser)
	defer func() {
		parser.Reset()
		pool.Put(parser)
	}()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return true
	}
	defer tree.Close()
	return tree.RootNode().HasError()
}
