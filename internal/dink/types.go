/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import (
	"fmt"
	"strings"
)

// The parsed structure is a strict four level tree:
// Scene (ink knot) -> Block (ink stitch, or the untitled default) -> Snippet (run of flow) -> Beat.
// Every container owns its children; there are no back references.

// BeatType indicates the kind of a beat.
// Line:   CHARACTER (qualifier): (direction) text #tags
// Action: free text followed by at least one #tag

type BeatType int

const (
	BeatLine BeatType = iota
	BeatAction
)

func (t BeatType) String() string {
	if t == BeatAction {
		return "Action"
	}
	return "Line"
}

// ParseBeatType maps the wire name back to a BeatType. Anything that is not "Action" is a line.
func ParseBeatType(s string) BeatType {
	if strings.EqualFold(strings.TrimSpace(s), "Action") {
		return BeatAction
	}
	return BeatLine
}

// Beat is one authored dialogue line or action line.
// LineID is empty until an #id: tag supplies one (or a later reconciliation does).
// CharacterID, Qualifier and Direction only carry data for BeatLine.
// Comments holds the // comments written directly above or behind the beat.
// Group numbers the shuffle/cycle/once/stopping brace group the beat sits in (1-based, 0 for none).
type Beat struct {
	Type        BeatType
	LineID      string
	Text        string
	Tags        []string
	CharacterID string
	Qualifier   string
	Direction   string
	Comments    []string
	Group       int
}

func (b Beat) String() string {
	var sb strings.Builder
	sb.WriteString(b.Type.String())
	if b.Type == BeatLine {
		fmt.Fprintf(&sb, " %s", b.CharacterID)
		if b.Qualifier != "" {
			fmt.Fprintf(&sb, " (%s)", b.Qualifier)
		}
		sb.WriteString(":")
		if b.Direction != "" {
			fmt.Fprintf(&sb, " (%s)", b.Direction)
		}
	} else {
		sb.WriteString(":")
	}
	fmt.Fprintf(&sb, " %q", b.Text)
	if len(b.Tags) > 0 {
		fmt.Fprintf(&sb, " tags=[%s]", strings.Join(b.Tags, ", "))
	}
	fmt.Fprintf(&sb, " id=%q", b.LineID)
	if b.Group > 0 {
		fmt.Fprintf(&sb, " group=%d", b.Group)
	}
	return sb.String()
}

// Snippet is a contiguous run of beats between two flow breaks.
// BraceComments are the comments written above the "{" lines still open when the snippet began,
// innermost first. A closing brace does not end a snippet.
type Snippet struct {
	SnippetID     string
	Beats         []Beat
	BraceComments []string
}

// BeatIDs returns the non-empty line ids of the snippet's beats in source order.
func (s Snippet) BeatIDs() []string {
	out := make([]string, 0, len(s.Beats))
	for _, b := range s.Beats {
		if b.LineID != "" {
			out = append(out, b.LineID)
		}
	}
	return out
}

func (s Snippet) String() string {
	return fmt.Sprintf("Snippet %s (%d beats)", s.SnippetID, len(s.Beats))
}

// Block maps to an ink stitch. BlockID is empty for the default block of a scene.
// Comments are the // comments directly above the knot or stitch header.
type Block struct {
	BlockID  string
	Snippets []Snippet
	Comments []string
}

func (b Block) String() string {
	id := b.BlockID
	if id == "" {
		id = "<default>"
	}
	return fmt.Sprintf("Block %s (%d snippets)", id, len(b.Snippets))
}

// Scene maps to an ink knot.
type Scene struct {
	SceneID string
	Blocks  []Block
}

func (s Scene) String() string {
	return fmt.Sprintf("Scene %s (%d blocks)", s.SceneID, len(s.Blocks))
}

// Snippets returns pointers to every snippet of the scene in order, so callers can rewrite ids in place.
func (s *Scene) Snippets() []*Snippet {
	var out []*Snippet
	for i := range s.Blocks {
		for j := range s.Blocks[i].Snippets {
			out = append(out, &s.Blocks[i].Snippets[j])
		}
	}
	return out
}

// Clone returns a deep copy of the scenes.
func Clone(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i, sc := range scenes {
		out[i] = Scene{SceneID: sc.SceneID, Blocks: make([]Block, len(sc.Blocks))}
		for j, bl := range sc.Blocks {
			nb := Block{BlockID: bl.BlockID, Snippets: make([]Snippet, len(bl.Snippets)), Comments: cloneStrings(bl.Comments)}
			for k, sn := range bl.Snippets {
				ns := Snippet{SnippetID: sn.SnippetID, Beats: make([]Beat, len(sn.Beats)), BraceComments: cloneStrings(sn.BraceComments)}
				for m, bt := range sn.Beats {
					nbt := bt
					nbt.Tags = append([]string{}, bt.Tags...)
					nbt.Comments = cloneStrings(bt.Comments)
					ns.Beats[m] = nbt
				}
				nb.Snippets[k] = ns
			}
			out[i].Blocks[j] = nb
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
