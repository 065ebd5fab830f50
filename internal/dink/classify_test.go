/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		line   string
		active bool
		kind   LineKind
		flow   bool
		name   string
	}{
		{"== intro", false, LineScene, false, "intro"},
		{"=== intro ===", true, LineScene, false, "intro"},
		{"== knot(x)", true, LineScene, false, "knot"},
		{"= cellar", true, LineBlock, false, "cellar"},
		{"#dink", false, LineModeMarker, false, ""},
		{"// a note", true, LineComment, false, "a note"},
		{"- else:", true, LineExpression, true, "else"},
		{"- x > 3: go", false, LineExpression, true, "x > 3"},
		{"- x > 3: go", true, LineExpressionError, true, "x > 3"},
		{"- FRED (O.S.): hi", true, LineExpressionError, true, "FRED (O.S.)"},
		{"* [Open the door]", true, LineNone, true, ""},
		{"+ sticky", true, LineNone, true, ""},
		{"-> cellar", true, LineNone, true, ""},
		{"<- thread", true, LineNone, true, ""},
		{"{ x > 3:", true, LineNone, true, ""},
		{"{x}", true, LineNone, false, ""},
		{"The door opens.", true, LineNone, false, ""},
		{"The door opens. #sfx", false, LineNone, false, ""},
		{"~ x = 1 #tag", true, LineNone, false, ""},
		{"> stage note #tag", true, LineNone, false, ""},
		{"Run -> away #tag", true, LineNone, true, ""},
		{"* Pick it #sfx", true, LineNone, true, ""},
		{"FRED: hi # bad", true, LineNone, false, ""},
		{"==", true, LineNone, false, ""},
	}
	for _, tc := range cases {
		c := Classify(tc.line, tc.active)
		if c.Kind != tc.kind {
			t.Fatalf("%q (active=%v): kind got %s want %s", tc.line, tc.active, c.Kind, tc.kind)
		}
		if c.FlowBreak != tc.flow {
			t.Fatalf("%q: flow break got %v want %v", tc.line, c.FlowBreak, tc.flow)
		}
		if c.Name != tc.name {
			t.Fatalf("%q: name got %q want %q", tc.line, c.Name, tc.name)
		}
	}
}

func TestClassifyDialogue(t *testing.T) {
	cases := []struct {
		line string
		flow bool
		want Beat
	}{
		{"FRED: Hello #id:l1", false, Beat{Type: BeatLine, CharacterID: "FRED", Text: "Hello", LineID: "l1", Tags: []string{}}},
		{"- ANNA: Hi.", true, Beat{Type: BeatLine, CharacterID: "ANNA", Text: "Hi.", Tags: []string{}}},
		{"FRED (O.S.): (whisper) run #fear #id:x", false, Beat{Type: BeatLine, CharacterID: "FRED", Qualifier: "O.S.", Direction: "whisper", Text: "run", LineID: "x", Tags: []string{"fear"}}},
		{"BOT_2: #id:e", false, Beat{Type: BeatLine, CharacterID: "BOT_2", LineID: "e", Tags: []string{}}},
	}
	for _, tc := range cases {
		for _, active := range []bool{false, true} {
			c := Classify(tc.line, active)
			if c.Kind != LineDialogue {
				t.Fatalf("%q: expected dialogue, got %s", tc.line, c.Kind)
			}
			if c.FlowBreak != tc.flow {
				t.Fatalf("%q: flow break got %v", tc.line, c.FlowBreak)
			}
			if diff := cmp.Diff(tc.want, c.Beat); diff != "" {
				t.Fatalf("%q beat mismatch (-want +got):\n%s", tc.line, diff)
			}
		}
	}
}

func TestClassifyAction(t *testing.T) {
	c := Classify("The door slams. #sfx #id:a1", true)
	if c.Kind != LineAction {
		t.Fatalf("expected action, got %s", c.Kind)
	}
	want := Beat{Type: BeatAction, Text: "The door slams.", LineID: "a1", Tags: []string{"sfx"}}
	if diff := cmp.Diff(want, c.Beat); diff != "" {
		t.Fatalf("beat mismatch (-want +got):\n%s", diff)
	}

	c = Classify("- Lights fade. #cue", true)
	if c.Kind != LineAction || !c.FlowBreak || c.Beat.Text != "Lights fade." {
		t.Fatalf("bulleted action: %+v", c)
	}
}

func TestMatchExpressionClause(t *testing.T) {
	cases := []struct {
		line       string
		ok         bool
		hasContent bool
	}{
		{"- else:", true, false},
		{"- x == 2: text", true, true},
		{"- FRED: hi", false, false},
		{"- F: hi", true, true},
		{"- x #tag: y", false, false},
		{"- : y", false, false},
		{"x: y", false, false},
		{"- no colon", false, false},
	}
	for _, tc := range cases {
		_, hasContent, ok := matchExpressionClause(tc.line)
		if ok != tc.ok || hasContent != tc.hasContent {
			t.Fatalf("%q: got ok=%v content=%v want ok=%v content=%v", tc.line, ok, hasContent, tc.ok, tc.hasContent)
		}
	}
}

func TestMatchHeaderLevels(t *testing.T) {
	if lvl, id, ok := matchHeader("=== end"); !ok || lvl != 3 || id != "end" {
		t.Fatalf("got %d %q %v", lvl, id, ok)
	}
	if lvl, id, ok := matchHeader("=stitch_2"); !ok || lvl != 1 || id != "stitch_2" {
		t.Fatalf("got %d %q %v", lvl, id, ok)
	}
	if _, _, ok := matchHeader("= "); ok {
		t.Fatalf("header without identifier accepted")
	}
}

func TestLineKindString(t *testing.T) {
	if LineDialogue.String() != "dialogue" || LineNone.String() != "none" {
		t.Fatalf("unexpected names: %s %s", LineDialogue, LineNone)
	}
}
