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

package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bennypowers.dev/tsvirt/ingest"
	"bennypowers.dev/tsvirt/project"
)

func TestHTTPClientIngest(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := ingest.NewHTTPClient(server.URL + "/snapshots")
	err := client.Ingest(context.Background(), pc, "typings/globals/thing.d.ts", []byte("declare var thing: any;"))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	expected := map[string]string{
		"context":     "/ws/proj/src",
		"projectRoot": "/ws/proj",
		"virtualPath": "typings/globals/thing.d.ts",
		"content":     "declare var thing: any;",
	}
	for key, want := range expected {
		if received[key] != want {
			t.Errorf("Expected %s %q, got %q", key, want, received[key])
		}
	}
}

func TestHTTPClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "snapshot rejected", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	err := ingest.NewHTTPClient(server.URL).Ingest(context.Background(), pc, "tsconfig.json", []byte("{}"))

	var ingestErr *ingest.IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("Expected IngestError, got %v", err)
	}
	if ingestErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status %d, got %d", http.StatusUnprocessableEntity, ingestErr.StatusCode)
	}
	if ingestErr.VirtualPath != "tsconfig.json" {
		t.Errorf("Expected virtual path %q, got %q", "tsconfig.json", ingestErr.VirtualPath)
	}
}

func TestHTTPClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := ingest.NewHTTPClient(url).Ingest(context.Background(), pc, "tsconfig.json", []byte("{}"))

	var ingestErr *ingest.IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("Expected IngestError, got %v", err)
	}
	if ingestErr.StatusCode != 0 {
		t.Errorf("Expected no status code, got %d", ingestErr.StatusCode)
	}
	if ingestErr.Err == nil {
		t.Error("Expected the transport error to be kept")
	}
}

func TestHTTPClientCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ingest.NewHTTPClient(server.URL).Ingest(ctx, pc, "tsconfig.json", []byte("{}"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled through IngestError, got %v", err)
	}
	var ingestErr *ingest.IngestError
	if !errors.As(err, &ingestErr) {
		t.Errorf("Expected IngestError, got %T", err)
	}
}

type failingIngester struct{ err error }

func (f failingIngester) Ingest(context.Context, project.Context, string, []byte) error {
	return f.err
}

func TestMulti(t *testing.T) {
	first := ingest.NewStore()
	second := ingest.NewStore()
	boom := errors.New("boom")

	m := ingest.Multi(first, failingIngester{boom}, second)
	err := m.Ingest(context.Background(), pc, "a.ts", []byte("let a = 1;"))
	if !errors.Is(err, boom) {
		t.Errorf("Expected joined error to contain boom, got %v", err)
	}

	for i, store := range []*ingest.Store{first, second} {
		if _, ok := store.Get(pc.Root, "a.ts"); !ok {
			t.Errorf("Expected store %d to receive the snapshot", i)
		}
	}

	if err := ingest.Multi(first).Ingest(context.Background(), pc, "b.ts", nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
