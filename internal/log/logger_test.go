/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInitJSONFileCarriesStaticAndContextAttrs checks the rotated file output and the
// file attribute that WithSourceFile adds.
func TestInitJSONFileCarriesStaticAndContextAttrs(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "dink.log")
	var console strings.Builder
	Init(Options{Level: "debug", Format: "json", File: fpath, Writer: &console})
	t.Cleanup(func() { Init(Options{Writer: &strings.Builder{}}) })

	l := WithOperation(WithComponent("parser"), "parse_lines")
	ctx := WithSourceFile(context.Background(), "story/intro.ink")
	l.InfoContext(ctx, "parsed", slog.Int("scenes", 2))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(strings.NewReader(string(b)))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	checks := map[string]any{
		"app":       "dinkwriter",
		"component": "parser",
		"op":        "parse_lines",
		"msg":       "parsed",
		"file":      "story/intro.ink",
		"scenes":    float64(2),
	}
	for k, want := range checks {
		if m[k] != want {
			t.Fatalf("%s: got %v want %v", k, m[k], want)
		}
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if !strings.Contains(console.String(), "\"msg\":\"parsed\"") {
		t.Fatalf("console writer did not receive the record: %q", console.String())
	}
}

func TestSourceFileMissing(t *testing.T) {
	if _, ok := SourceFile(context.Background()); ok {
		t.Fatalf("expected no source file")
	}
	if _, ok := SourceFile(WithSourceFile(context.Background(), "")); ok {
		t.Fatalf("empty path should not count")
	}
}
