/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package source

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"dinkwriter/internal/dink"

	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func relPaths(t *testing.T, dir string, sm *SourceMap) []string {
	t.Helper()
	root, err := Canonical(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, p := range sm.Paths() {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// The include graph used below:
//
//	main -> a, b
//	a    -> sub/c (resolved against main's directory)
//	b    -> main (cycle)
var graph = map[string]string{
	"main.ink":  "INCLUDE a.ink\nINCLUDE b.ink\n== main\n",
	"a.ink":     "INCLUDE sub/c.ink\n",
	"b.ink":     "INCLUDE main.ink\n/* INCLUDE hidden.ink */\n",
	"sub/c.ink": "// leaf\n",
}

func TestLoadAllStackOrder(t *testing.T) {
	dir := writeFiles(t, graph)
	sm, err := NewResolver().LoadAll(filepath.Join(dir, "main.ink"))
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	want := []string{"main.ink", "b.ink", "a.ink", "sub/c.ink"}
	if diff := cmp.Diff(want, relPaths(t, dir, sm)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if len(sm.Missing()) != 0 {
		t.Fatalf("hidden include inside a block comment must be ignored: %v", sm.Missing())
	}
}

func TestLoadAllDeclarationOrder(t *testing.T) {
	dir := writeFiles(t, graph)
	r := NewResolver()
	r.Order = OrderDeclaration
	sm, err := r.LoadAll(filepath.Join(dir, "main.ink"))
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	want := []string{"main.ink", "a.ink", "b.ink", "sub/c.ink"}
	if diff := cmp.Diff(want, relPaths(t, dir, sm)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAllMissingInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.ink": "INCLUDE gone.ink\nINCLUDE ok.ink\n",
		"ok.ink":   "== ok\n",
	})
	sm, err := NewResolver().LoadAll(filepath.Join(dir, "main.ink"))
	if err != nil {
		t.Fatalf("a missing include must not fail the load: %v", err)
	}
	if sm.Len() != 2 {
		t.Fatalf("expected main and ok, got %v", sm.Paths())
	}
	if m := sm.Missing(); len(m) != 1 || filepath.Base(m[0]) != "gone.ink" {
		t.Fatalf("missing list: %v", m)
	}
}

func TestLoadAllStartFileError(t *testing.T) {
	_, err := NewResolver().LoadAll(filepath.Join(t.TempDir(), "none.ink"))
	if !errors.Is(err, ErrStartFile) {
		t.Fatalf("expected ErrStartFile, got %v", err)
	}
}

type mapLoader map[string]string

func (m mapLoader) ReadFile(path string) ([]byte, error) {
	if s, ok := m[filepath.ToSlash(path)]; ok {
		return []byte(s), nil
	}
	return nil, fs.ErrNotExist
}

func TestLoadAllCustomLoader(t *testing.T) {
	root, err := Canonical("story")
	if err != nil {
		t.Fatal(err)
	}
	key := func(name string) string { return filepath.ToSlash(filepath.Join(root, name)) }
	r := &Resolver{FS: mapLoader{key("main.ink"): "INCLUDE x.ink\n", key("x.ink"): "== x\n"}}
	sm, err := r.LoadAll(filepath.Join("story", "main.ink"))
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if sm.Len() != 2 {
		t.Fatalf("expected 2 files, got %v", sm.Paths())
	}
}

func TestParseAllConcatenatesInMapOrder(t *testing.T) {
	sm := NewSourceMap()
	sm.Add("/s/one.ink", "== one\n#dink\nFRED: hi #id:1\n")
	sm.Add("/s/two.ink", "== two\n#dink\nANNA: yo #id:2\n")
	if sm.Add("/s/one.ink", "dup") {
		t.Fatalf("duplicate add must be rejected")
	}
	p := dink.NewParser(dink.WithRand(rand.New(rand.NewPCG(3, 4))))
	scenes, err := ParseAll(sm, p)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(scenes) != 2 || scenes[0].SceneID != "one" || scenes[1].SceneID != "two" {
		t.Fatalf("unexpected scenes: %v", scenes)
	}

	sm.Add("/s/bad.ink", "== bad\n#dink\n- x: y\n")
	if _, err := ParseAll(sm, p); !errors.Is(err, dink.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}
