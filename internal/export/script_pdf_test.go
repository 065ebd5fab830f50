/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"dinkwriter/internal/dink"
)

func testScenes() []dink.Scene {
	return []dink.Scene{{SceneID: "intro", Blocks: []dink.Block{
		{Snippets: []dink.Snippet{{SnippetID: "ab12", Beats: []dink.Beat{
			{Type: dink.BeatLine, LineID: "l1", CharacterID: "FRED", Qualifier: "O.S.", Direction: "whisper", Text: "Careful now", Tags: []string{"fear"}, Comments: []string{"keep it low"}},
			{Type: dink.BeatAction, LineID: "a1", Text: "The door creaks.", Tags: []string{"sfx"}},
		}}}},
		{BlockID: "cellar", Comments: []string{"lights out"}, Snippets: []dink.Snippet{{SnippetID: "cd34", Beats: []dink.Beat{
			{Type: dink.BeatLine, CharacterID: "ANNA", Text: "Too dark.", Tags: []string{}},
		}}, {SnippetID: "ef56", BraceComments: []string{"random barks"}, Beats: []dink.Beat{
			{Type: dink.BeatLine, LineID: "b1", CharacterID: "FRED", Text: "Hello?", Group: 1},
		}}}},
	}}}
}

func TestWriteScriptPDFCreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "exports", "script.pdf")
	if err := WriteScriptPDF(testScenes(), "Test Script", out, PDFOptions{ShowLineIDs: true, ShowTags: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:min(len(data), 16)])
	}
}

func TestRenderScriptPDFContent(t *testing.T) {
	var buf bytes.Buffer
	opt := PDFOptions{ShowLineIDs: true, ShowTags: true, ShowComments: true, NoCompression: true}
	if err := RenderScriptPDF(&buf, testScenes(), "Test Script", opt); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"FRED \\(O.S.\\)", "Careful now", "The door creaks.", "no id", "#fear", "// keep it low", "= cellar", "// lights out", "// random barks", "Group 1"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("pdf content missing %q", want)
		}
	}
}

func TestRenderScriptPDFRejectsUnknownPageSize(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderScriptPDF(&buf, nil, "x", PDFOptions{PageSize: "B5"}); err == nil {
		t.Fatalf("expected error for unknown page size")
	}
}

func TestWriteScriptPDFRequiresPath(t *testing.T) {
	if err := WriteScriptPDF(testScenes(), "x", "", PDFOptions{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestBeatMeta(t *testing.T) {
	bt := dink.Beat{LineID: "l1", Tags: []string{"a", "b"}}
	if got := beatMeta(bt, PDFOptions{ShowLineIDs: true, ShowTags: true}); got != "l1  #a #b" {
		t.Fatalf("beatMeta = %q", got)
	}
	if got := beatMeta(bt, PDFOptions{}); got != "" {
		t.Fatalf("beatMeta without options = %q", got)
	}
}
