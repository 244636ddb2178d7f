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

package scan_test

import (
	"context"
	"errors"
	"testing"

	"bennypowers.dev/tsvirt/ingest"
	"bennypowers.dev/tsvirt/internal/mapfs"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/scan"
	"bennypowers.dev/tsvirt/tsconfig"
)

func batchFS() *mapfs.MapFileSystem {
	mfs := mapfs.New()
	mfs.AddFile("/ws/proj/package.json", `{}`, 0644)
	mfs.AddFile("/ws/proj/tsconfig.json", `{"compilerOptions":{"outDir":"./out"}}`, 0644)
	mfs.AddFile("/ws/proj/node_modules/lib/index.d.ts", "export {}", 0644)
	for _, pkg := range []string{"a", "b", "c", "d"} {
		mfs.AddFile("/ws/proj/packages/"+pkg+"/tsconfig.json", `{"compilerOptions":{"sourceRoot":"./src"}}`, 0644)
		mfs.AddFile("/ws/proj/packages/"+pkg+"/src/index.ts", "export {}", 0644)
	}
	mfs.AddFile("/ws/proj/packages/broken/tsconfig.json/oops", "", 0644)
	return mfs
}

func TestScanBatch(t *testing.T) {
	mfs := batchFS()
	store := ingest.NewStore()
	scanner := scan.New(mfs, project.NewMarkerOwner(mfs), store, nil)

	roots := []string{
		"/ws/proj/packages/a",
		"/ws/proj/packages/b",
		"/ws/proj/packages/c",
		"/ws/proj/packages/d",
		"/ws/proj/packages/broken",
	}

	seen := make(map[string]scan.BatchResult)
	for result := range scanner.ScanBatch(context.Background(), roots, 2) {
		seen[result.Root] = result
	}

	if len(seen) != len(roots) {
		t.Fatalf("Expected %d results, got %d", len(roots), len(seen))
	}
	for _, root := range roots[:4] {
		r := seen[root]
		if r.Err != nil {
			t.Errorf("%s: unexpected error: %v", root, r.Err)
			continue
		}
		if !r.Result.Relevant || r.Result.SourceRootRel != "src" {
			t.Errorf("%s: expected source root %q, got %+v", root, "src", r.Result)
		}
		if !r.Result.IsFileExternal("node_modules/lib/index.d.ts") {
			t.Errorf("%s: expected node_modules to be published, got %v", root, r.Result.Published)
		}
		if _, ok := store.Get(root, "node_modules/lib/index.d.ts"); !ok {
			t.Errorf("%s: expected a snapshot in the store", root)
		}
	}

	var readErr *tsconfig.ReadError
	if !errors.As(seen["/ws/proj/packages/broken"].Err, &readErr) {
		t.Errorf("Expected ReadError for the broken package, got %v", seen["/ws/proj/packages/broken"].Err)
	}
}

func TestScanBatchCanceled(t *testing.T) {
	mfs := batchFS()
	scanner := scan.New(mfs, project.NewMarkerOwner(mfs), ingest.NewStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for result := range scanner.ScanBatch(ctx, []string{"/ws/proj/packages/a", "/ws/proj/packages/b"}, 0) {
		if !errors.Is(result.Err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", result.Root, result.Err)
		}
	}
}

func TestScanBatchEmpty(t *testing.T) {
	mfs := mapfs.New()
	scanner := scan.New(mfs, project.NewMarkerOwner(mfs), ingest.NewStore(), nil)

	count := 0
	for range scanner.ScanBatch(context.Background(), nil, 4) {
		count++
	}
	if count != 0 {
		t.Errorf("Expected no results, got %d", count)
	}
}
