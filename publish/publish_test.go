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

package publish_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"bennypowers.dev/tsvirt/contenttype"
	"bennypowers.dev/tsvirt/internal/mapfs"
	"bennypowers.dev/tsvirt/locate"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/publish"
	"bennypowers.dev/tsvirt/sourceroot"
	"bennypowers.dev/tsvirt/tsconfig"
)

type recordingLogger struct {
	project.NopLogger
	errors   []string
	warnings []string
}

func (l *recordingLogger) Error(format string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warning(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

var pc = project.Context{Root: "/ws/proj/src", ProjectRoot: "/ws/proj"}

const manifest = `{"compilerOptions":{"sourceRoot":"./src/app","outDir":"./out"}}`

func uncleFS(manifest string) *mapfs.MapFileSystem {
	mfs := mapfs.New()
	mfs.AddFile("/ws/proj/package.json", `{"name":"proj"}`, 0644)
	mfs.AddFile("/ws/proj/tsconfig.json", manifest, 0644)
	mfs.AddFile("/ws/proj/typings.json", `{"globalDependencies":{}}`, 0644)
	mfs.AddFile("/ws/proj/node_modules/lib/index.d.ts", "export declare const x: number;", 0644)
	mfs.AddFile("/ws/proj/node_modules/lib/index.js", "exports.x = 1;", 0644)
	mfs.AddFile("/ws/proj/node_modules/lib/package.json", `{"name":"lib"}`, 0644)
	mfs.AddFile("/ws/proj/typings/globals/thing.d.ts", "declare var thing: any;", 0644)
	mfs.AddFile("/ws/proj/src/app/main.ts", "export {}", 0644)
	return mfs
}

func uncleLocation() *locate.Result {
	return &locate.Result{
		Inside: map[string]string{},
		Outside: map[string]string{
			locate.TSConfig:    "/ws/proj/tsconfig.json",
			locate.NodeModules: "/ws/proj/node_modules",
			locate.TypingsJSON: "/ws/proj/typings.json",
			locate.Typings:     "/ws/proj/typings",
		},
	}
}

func rootAt(t *testing.T, dir, manifest string) *sourceroot.Root {
	t.Helper()
	m, err := tsconfig.Parse([]byte(manifest))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(dir, pc.Root), "/")
	return &sourceroot.Root{
		Dir:          dir,
		RelPath:      rel,
		ManifestPath: "/ws/proj/tsconfig.json",
		Manifest:     m,
	}
}

func TestPublishUncleArtifacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	mfs := uncleFS(manifest)

	rewritten := `{"compilerOptions":{"sourceRoot":"./app","outDir":"../out","--sourceRootOriginal":"./src/app","--outDirOriginal":"./out"}}`
	ingester.EXPECT().Ingest(gomock.Any(), pc, "tsconfig.json", []byte(rewritten)).Times(1)
	ingester.EXPECT().Ingest(gomock.Any(), pc, "typings.json", []byte(`{"globalDependencies":{}}`)).Times(1)
	ingester.EXPECT().Ingest(gomock.Any(), pc, "node_modules/lib/index.d.ts", []byte("export declare const x: number;")).Times(1)
	ingester.EXPECT().Ingest(gomock.Any(), pc, "typings/globals/thing.d.ts", []byte("declare var thing: any;")).Times(1)

	state := publish.NewState()
	p := publish.New(mfs, ingester, nil, nil)
	err := p.Publish(context.Background(), pc, uncleLocation(), rootAt(t, "/ws/proj/src/app", manifest), state)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if state.Len() != 4 {
		t.Errorf("Expected 4 published paths, got %d: %v", state.Len(), state.Published())
	}
	if got := state.Published()["tsconfig.json"]; got != "/ws/proj/tsconfig.json" {
		t.Errorf("Expected tsconfig.json to map to %q, got %q", "/ws/proj/tsconfig.json", got)
	}

	for file := range mfs.ListFiles() {
		if strings.HasPrefix(file, "tmp/") {
			t.Errorf("Expected temporary manifest to be removed, found %s", file)
		}
	}
	original, err := mfs.ReadFile("/ws/proj/tsconfig.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(original) != manifest {
		t.Errorf("Expected manifest on disk to be untouched, got %s", original)
	}
}

// tempRecordingFS records temp files written and removed.
type tempRecordingFS struct {
	*mapfs.MapFileSystem
	written map[string][]byte
	removed []string
}

func (f *tempRecordingFS) WriteTemp(dir, pattern string, data []byte) (string, error) {
	name, err := f.MapFileSystem.WriteTemp(dir, pattern, data)
	if err == nil {
		f.written[name] = data
	}
	return name, err
}

func (f *tempRecordingFS) Remove(name string) error {
	f.removed = append(f.removed, name)
	return f.MapFileSystem.Remove(name)
}

func TestPublishManifestGoesThroughTempFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	mfs := uncleFS(manifest)
	mfs.AddDir("/scratch", 0755)
	mfs.SetTempDir("/scratch")
	fsys := &tempRecordingFS{MapFileSystem: mfs, written: map[string][]byte{}}

	var ingested []byte
	ingester.EXPECT().Ingest(gomock.Any(), pc, "tsconfig.json", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ project.Context, _ string, content []byte) error {
			ingested = content
			return nil
		})
	ingester.EXPECT().Ingest(gomock.Any(), pc, gomock.Not("tsconfig.json"), gomock.Any()).Times(3)

	p := publish.New(fsys, ingester, nil, nil)
	err := p.Publish(context.Background(), pc, uncleLocation(), rootAt(t, "/ws/proj/src/app", manifest), publish.NewState())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(fsys.written) != 1 {
		t.Fatalf("Expected one temp file, got %d", len(fsys.written))
	}
	for name, data := range fsys.written {
		if !strings.HasPrefix(name, "/scratch/tsvirt-") || !strings.HasSuffix(name, "-tsconfig.json") {
			t.Errorf("Expected /scratch/tsvirt-*-tsconfig.json, got %s", name)
		}
		if string(data) != string(ingested) {
			t.Errorf("Expected ingested manifest to match temp file:\nwritten:  %s\ningested: %s", data, ingested)
		}
		if len(fsys.removed) != 1 || fsys.removed[0] != name {
			t.Errorf("Expected %s to be removed, removed %v", name, fsys.removed)
		}
	}

	entries, err := mfs.ReadDir(mfs.TempDir())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected temp dir to be empty after Publish, got %d entries", len(entries))
	}
}

func TestPublishNestedVirtualBase(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)

	nested := `{"compilerOptions":{"sourceRoot":"./src/app/lib","outDir":"./out"}}`
	mfs := uncleFS(nested)
	mfs.AddFile("/ws/proj/src/app/lib/index.ts", "export {}", 0644)

	loc := &locate.Result{
		Inside:  map[string]string{},
		Outside: map[string]string{locate.TSConfig: "/ws/proj/tsconfig.json"},
	}

	rewritten := `{"compilerOptions":{"sourceRoot":"./lib","outDir":"../../out","--sourceRootOriginal":"./src/app/lib","--outDirOriginal":"./out"}}`
	ingester.EXPECT().Ingest(gomock.Any(), pc, "app/tsconfig.json", []byte(rewritten)).Times(1)

	state := publish.NewState()
	err := publish.New(mfs, ingester, nil, nil).
		Publish(context.Background(), pc, loc, rootAt(t, "/ws/proj/src/app/lib", nested), state)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !state.Has("app/tsconfig.json") {
		t.Error("Expected app/tsconfig.json to be published")
	}
}

func TestPublishNothingOutside(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)

	loc := &locate.Result{
		Inside: map[string]string{
			locate.TSConfig:    "/ws/proj/src/tsconfig.json",
			locate.NodeModules: "/ws/proj/src/node_modules",
		},
		Outside: map[string]string{},
	}

	state := publish.NewState()
	err := publish.New(uncleFS(manifest), ingester, nil, nil).
		Publish(context.Background(), pc, loc, rootAt(t, "/ws/proj/src/app", manifest), state)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if state.Len() != 0 {
		t.Errorf("Expected nothing published, got %v", state.Published())
	}
}

func TestPublishOncePerState(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	ingester.EXPECT().Ingest(gomock.Any(), pc, gomock.Any(), gomock.Any()).Times(4)

	mfs := uncleFS(manifest)
	p := publish.New(mfs, ingester, nil, nil)
	root := rootAt(t, "/ws/proj/src/app", manifest)
	state := publish.NewState()

	for range 2 {
		if err := p.Publish(context.Background(), pc, uncleLocation(), root, state); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if state.Len() != 4 {
		t.Errorf("Expected 4 published paths, got %d", state.Len())
	}
}

func TestPublishSourceType(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	ingester.EXPECT().Ingest(gomock.Any(), pc, "node_modules/lib/index.js", []byte("exports.x = 1;")).Times(1)

	loc := &locate.Result{
		Inside:  map[string]string{},
		Outside: map[string]string{locate.NodeModules: "/ws/proj/node_modules"},
	}

	err := publish.New(uncleFS(manifest), ingester, nil, nil).
		WithSourceType(contenttype.JavaScript).
		Publish(context.Background(), pc, loc, rootAt(t, "/ws/proj/src/app", manifest), publish.NewState())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestPublishNoVirtualBase(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	logger := &recordingLogger{}

	atContext := `{"compilerOptions":{"sourceRoot":"./src"}}`
	state := publish.NewState()
	err := publish.New(uncleFS(atContext), ingester, nil, logger).
		Publish(context.Background(), pc, uncleLocation(), rootAt(t, "/ws/proj/src", atContext), state)

	if !errors.Is(err, publish.ErrNoVirtualBase) {
		t.Fatalf("Expected ErrNoVirtualBase, got %v", err)
	}
	if state.Len() != 0 {
		t.Errorf("Expected nothing published, got %v", state.Published())
	}
	if len(logger.errors) != 1 {
		t.Errorf("Expected one logged error, got %v", logger.errors)
	}
}

func TestPublishSkipsUnrewritableManifest(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	ingester.EXPECT().Ingest(gomock.Any(), pc, gomock.Not("tsconfig.json"), gomock.Any()).Times(3)
	logger := &recordingLogger{}

	detour := `{"compilerOptions":{"sourceRoot":"./lib/../src/app"}}`
	state := publish.NewState()
	err := publish.New(uncleFS(detour), ingester, nil, logger).
		Publish(context.Background(), pc, uncleLocation(), rootAt(t, "/ws/proj/src/app", detour), state)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if state.Has("tsconfig.json") {
		t.Error("Expected manifest not to be published")
	}
	if len(logger.errors) != 1 {
		t.Errorf("Expected one logged error, got %v", logger.errors)
	}
}

func TestPublishIngestFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := publish.NewMockIngester(ctrl)
	boom := errors.New("ingestion service unavailable")
	ingester.EXPECT().Ingest(gomock.Any(), pc, gomock.Any(), gomock.Any()).Return(boom).Times(1)

	err := publish.New(uncleFS(manifest), ingester, nil, nil).
		Publish(context.Background(), pc, uncleLocation(), rootAt(t, "/ws/proj/src/app", manifest), publish.NewState())
	if !errors.Is(err, boom) {
		t.Errorf("Expected ingest error to be returned, got %v", err)
	}
}

func TestVirtualBase(t *testing.T) {
	tests := []struct {
		dir      string
		expected string
		wantErr  bool
	}{
		{"/ws/proj/src/app", "", false},
		{"/ws/proj/src/app/lib", "app/", false},
		{"/ws/proj/src/a/b/c", "a/b/", false},
		{"/ws/proj/src", "", true},
		{"/ws/proj", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			got, err := publish.VirtualBase(pc, &sourceroot.Root{Dir: tt.dir})
			if tt.wantErr {
				if !errors.Is(err, publish.ErrNoVirtualBase) {
					t.Errorf("Expected ErrNoVirtualBase, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VirtualBase failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
