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

package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"bennypowers.dev/tsvirt/ingest"
	"bennypowers.dev/tsvirt/scan"
)

// render formats scan results. A single JSON result is indented; several
// are written as NDJSON, one result per line. Canceled scans have no
// result and are left out.
func render(format string, results []*scan.Result, store *ingest.Store) ([]byte, error) {
	results = slices.DeleteFunc(slices.Clone(results), func(r *scan.Result) bool {
		return r == nil
	})

	switch format {
	case "json":
		if len(results) == 1 {
			return json.MarshalIndent(results[0], "", "  ")
		}
		var buf bytes.Buffer
		encoder := json.NewEncoder(&buf)
		for _, r := range results {
			if err := encoder.Encode(r); err != nil {
				return nil, fmt.Errorf("encoding result for %s: %w", r.Context.Root, err)
			}
		}
		return buf.Bytes(), nil
	case "yaml":
		return yaml.Marshal(results)
	default:
		return renderText(results, store), nil
	}
}

func renderText(results []*scan.Result, store *ingest.Store) []byte {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", r.Context.Root)
		if !r.Context.Owned() {
			b.WriteString("  no owning project\n")
			continue
		}
		fmt.Fprintf(&b, "  project: %s\n", r.Context.ProjectRoot)
		if r.IsTSContext() {
			fmt.Fprintf(&b, "  source root: %s\n", displayRel(r.SourceRootRel))
		} else {
			b.WriteString("  not a TypeScript context\n")
		}
		for _, name := range slices.Sorted(maps.Keys(r.Outside)) {
			fmt.Fprintf(&b, "  outside: %s -> %s\n", name, r.Outside[name])
		}
		if len(r.Missing) > 0 {
			fmt.Fprintf(&b, "  missing: %s\n", strings.Join(r.Missing, ", "))
		}
		for _, vp := range slices.Sorted(maps.Keys(r.Published)) {
			note := ""
			if snapshot, ok := store.Get(r.Context.Root, vp); ok && snapshot.SyntaxErrors {
				note = " (syntax errors)"
			}
			fmt.Fprintf(&b, "  published: %s <- %s%s\n", vp, r.Published[vp], note)
		}
	}
	return []byte(b.String())
}

func displayRel(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
