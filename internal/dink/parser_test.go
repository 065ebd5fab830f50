/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestParser() *Parser {
	return NewParser(WithRand(rand.New(rand.NewPCG(1, 2))))
}

var ignoreSnippetIDs = cmpopts.IgnoreFields(Snippet{}, "SnippetID")

func TestParseScenesBlocksAndBeats(t *testing.T) {
	input := `== intro
#dink
FRED: Hello there #id:l1
- ANNA: Hi. #id:l2
The door slams. #sfx #id:a1
= cellar
FRED (O.S.): (whisper) careful #fear #id:l3
* [Go down]
  ANNA: Fine. #id:l4
== outro
`
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Scene{
		{SceneID: "intro", Blocks: []Block{
			{BlockID: "", Snippets: []Snippet{
				{Beats: []Beat{{Type: BeatLine, CharacterID: "FRED", Text: "Hello there", LineID: "l1", Tags: []string{}}}},
				{Beats: []Beat{
					{Type: BeatLine, CharacterID: "ANNA", Text: "Hi.", LineID: "l2", Tags: []string{}},
					{Type: BeatAction, Text: "The door slams.", LineID: "a1", Tags: []string{"sfx"}},
				}},
			}},
			{BlockID: "cellar", Snippets: []Snippet{
				{Beats: []Beat{{Type: BeatLine, CharacterID: "FRED", Qualifier: "O.S.", Direction: "whisper", Text: "careful", LineID: "l3", Tags: []string{"fear"}}}},
				{Beats: []Beat{{Type: BeatLine, CharacterID: "ANNA", Text: "Fine.", LineID: "l4", Tags: []string{}}}},
			}},
		}},
	}
	if diff := cmp.Diff(want, scenes, ignoreSnippetIDs); diff != "" {
		t.Fatalf("scenes mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptySceneNotEmitted(t *testing.T) {
	scenes, err := newTestParser().ParseLines([]string{"== intro", "#dink", "FRED: hi #id:l1", "== outro"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 1 || scenes[0].SceneID != "intro" {
		t.Fatalf("expected only intro scene, got %+v", scenes)
	}
	if n := len(scenes[0].Blocks); n != 1 {
		t.Fatalf("expected 1 block, got %d", n)
	}
	if n := len(scenes[0].Blocks[0].Snippets); n != 1 {
		t.Fatalf("expected 1 snippet, got %d", n)
	}
	if n := len(scenes[0].Blocks[0].Snippets[0].Beats); n != 1 {
		t.Fatalf("expected 1 beat, got %d", n)
	}
}

func TestDialogueOutsideDinkIsIgnored(t *testing.T) {
	scenes, err := newTestParser().ParseText("== intro\nFRED: hi #id:l1\nA door opens. #sfx\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 0 {
		t.Fatalf("expected no scenes without #dink, got %+v", scenes)
	}
}

func TestSceneHeaderResetsDinkMode(t *testing.T) {
	input := "== a\n#dink\nFRED: one #id:1\n== b\nFRED: two #id:2\n"
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 1 || scenes[0].SceneID != "a" {
		t.Fatalf("expected only scene a, got %+v", scenes)
	}
}

func TestBlockHeaderKeepsDinkMode(t *testing.T) {
	input := "== a\n#dink\n= one\nFRED: one #id:1\n= two\nFRED: two #id:2\n"
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 1 || len(scenes[0].Blocks) != 2 {
		t.Fatalf("expected 1 scene with 2 blocks, got %+v", scenes)
	}
	if scenes[0].Blocks[0].BlockID != "one" || scenes[0].Blocks[1].BlockID != "two" {
		t.Fatalf("unexpected block ids: %+v", scenes[0].Blocks)
	}
}

func TestExpressionClauseFatalOnlyWhenActive(t *testing.T) {
	_, err := newTestParser().ParseText("== a\n#dink\nFRED: hi #id:1\n- x > 3: something\n")
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Line != 4 {
		t.Fatalf("expected FormatError at line 4, got %#v", err)
	}

	scenes, err := newTestParser().ParseText("== a\n- x > 3: something\n#dink\nFRED: hi #id:1\n")
	if err != nil {
		t.Fatalf("inactive expression clause should not fail: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(scenes))
	}
}

func TestExpressionClauseWithoutContentSplitsSnippet(t *testing.T) {
	input := "== a\n#dink\n{ x:\nFRED: one #id:1\n- else:\nFRED: two #id:2\n}\n"
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(scenes[0].Blocks[0].Snippets); got != 2 {
		t.Fatalf("expected 2 snippets, got %d", got)
	}
}

func TestRepeatedFlowBreaksDoNotCreateBeats(t *testing.T) {
	input := "== a\n#dink\nFRED: one #id:1\n-> next\n-> next\nFRED: two #id:2\n"
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sn := scenes[0].Blocks[0].Snippets
	if len(sn) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(sn))
	}
	for _, s := range sn {
		if len(s.Beats) != 1 {
			t.Fatalf("expected one beat per snippet, got %+v", s)
		}
	}
}

func TestCommentsAndBlockComments(t *testing.T) {
	input := `== a
#dink
/* FRED: hidden #id:x
   ANNA: also hidden #id:y */
// spoken quietly
FRED: hello #id:1 // trailing note
// dangling
== b
`
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	beats := scenes[0].Blocks[0].Snippets[0].Beats
	if len(beats) != 1 {
		t.Fatalf("expected 1 beat, got %+v", beats)
	}
	if diff := cmp.Diff([]string{"spoken quietly", "trailing note"}, beats[0].Comments); diff != "" {
		t.Fatalf("comments mismatch (-want +got):\n%s", diff)
	}
	if beats[0].Text != "hello" {
		t.Fatalf("trailing comment not removed: %q", beats[0].Text)
	}
}

func TestFormatErrorLineCountsBlockComments(t *testing.T) {
	input := "== a\n#dink\n/* one\ntwo\nthree */\n- x > 3: boom\n"
	_, err := newTestParser().ParseText(input)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Line != 6 {
		t.Fatalf("expected line 6, got %d", fe.Line)
	}
}

func TestHeaderCommentsAttachToBlocks(t *testing.T) {
	input := `// opening scene
== a // at the door
#dink
FRED: hi #id:1
// down below
= cellar
ANNA: cold #id:2
`
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := scenes[0].Blocks
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %+v", blocks)
	}
	if diff := cmp.Diff([]string{"opening scene", "at the door"}, blocks[0].Comments); diff != "" {
		t.Fatalf("scene header comments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"down below"}, blocks[1].Comments); diff != "" {
		t.Fatalf("stitch header comments mismatch (-want +got):\n%s", diff)
	}
	for _, bl := range blocks {
		if c := bl.Snippets[0].Beats[0].Comments; c != nil {
			t.Fatalf("header comments leaked onto beat: %v", c)
		}
	}
}

func TestInkGroupsAndBraceComments(t *testing.T) {
	input := `== a
#dink
FRED: before #id:1
// barks
{shuffle:
- ANNA: one #id:2
- ANNA: two #id:3
}
FRED: between #id:4
// second round
{cycle:
- BOB: three #id:5
}
`
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	groups := map[string]int{}
	braces := map[string][]string{}
	for _, sn := range FlattenSnippets(scenes) {
		for _, b := range sn.Beats {
			groups[b.LineID] = b.Group
			braces[b.LineID] = sn.BraceComments
		}
	}
	want := map[string]int{"1": 0, "2": 1, "3": 1, "4": 0, "5": 2}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"barks"}, braces["2"]); diff != "" {
		t.Fatalf("brace comments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"second round"}, braces["5"]); diff != "" {
		t.Fatalf("brace comments mismatch (-want +got):\n%s", diff)
	}
	if braces["1"] != nil {
		t.Fatalf("snippet outside braces has brace comments: %v", braces["1"])
	}
}

func TestNestedBraceCommentsInnermostFirst(t *testing.T) {
	input := `== a
#dink
// outer
{once:
// inner
{x > 1:
FRED: deep #id:1
}
}
`
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sn := FlattenSnippets(scenes)
	if len(sn) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(sn))
	}
	if diff := cmp.Diff([]string{"inner", "outer"}, sn[0].BraceComments); diff != "" {
		t.Fatalf("brace comments mismatch (-want +got):\n%s", diff)
	}
	if g := sn[0].Beats[0].Group; g != 1 {
		t.Fatalf("nested beat should stay in the outer group, got %d", g)
	}
}

func TestContainsInkGroup(t *testing.T) {
	cases := map[string]bool{
		"{shuffle:":          true,
		"{ once:":            true,
		"{stopping:":         true,
		"{cycle: a|b":        true,
		"{x > 1:":            false,
		"{reshuffled_deck:":  false,
		"{visited_once > 1:": false,
	}
	for in, want := range cases {
		if got := ContainsInkGroup(in); got != want {
			t.Fatalf("ContainsInkGroup(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestUntaggedActionIgnored(t *testing.T) {
	scenes, err := newTestParser().ParseText("== a\n#dink\nThe wind howls.\nThe door bangs. #sfx #id:a1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	beats := scenes[0].Blocks[0].Snippets[0].Beats
	if len(beats) != 1 || beats[0].Text != "The door bangs." {
		t.Fatalf("expected only the tagged action, got %+v", beats)
	}
}

func TestSnippetIDsDeterministicWithSeed(t *testing.T) {
	input := "== a\n#dink\nFRED: one #id:1\n* choice\nFRED: two #id:2\n"
	a, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed should produce the same tree:\n%s", diff)
	}
	for _, sn := range FlattenSnippets(a) {
		if len(sn.SnippetID) != 4 {
			t.Fatalf("snippet id should have 4 chars: %q", sn.SnippetID)
		}
	}
}

func TestNoEmptyContainers(t *testing.T) {
	input := `== a
= empty
= one
#dink
-> x
* [c]
FRED: hi #id:1
-> done
== b
#dink
= nothing
`
	scenes, err := newTestParser().ParseText(input)
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range scenes {
		if len(sc.Blocks) == 0 {
			t.Fatalf("empty scene emitted: %s", sc)
		}
		for _, bl := range sc.Blocks {
			if len(bl.Snippets) == 0 {
				t.Fatalf("empty block emitted: %s", bl)
			}
			for _, sn := range bl.Snippets {
				if len(sn.Beats) == 0 {
					t.Fatalf("empty snippet emitted: %s", sn)
				}
			}
		}
	}
}
