/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dinkjson is the JSON bridge for parsed Dink structure: the full structure document,
// its schema check, and the flat "minimal" line list consumed by localisation tooling.
package dinkjson

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dinkwriter/internal/dink"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed dink.schema.json
var schemaJSON []byte

// ErrInvalid wraps schema violations reported by Validate.
var ErrInvalid = errors.New("dink json does not conform to schema")

type sceneJSON struct {
	SceneID string      `json:"SceneID"`
	Blocks  []blockJSON `json:"Blocks"`
}

type blockJSON struct {
	BlockID  string        `json:"BlockID"`
	Snippets []snippetJSON `json:"Snippets"`
	Comments []string      `json:"Comments,omitempty"`
}

type snippetJSON struct {
	SnippetID     string     `json:"SnippetID"`
	Beats         []beatJSON `json:"Beats"`
	BraceComments []string   `json:"BraceComments,omitempty"`
}

type beatJSON struct {
	Type        string   `json:"Type"`
	LineID      string   `json:"LineID"`
	Text        string   `json:"Text"`
	Tags        []string `json:"Tags"`
	CharacterID string   `json:"CharacterID"`
	Qualifier   string   `json:"Qualifier"`
	Direction   string   `json:"Direction"`
	Comments    []string `json:"Comments,omitempty"`
	Group       int      `json:"Group,omitempty"`
}

// Encode renders scenes as an indented JSON array. Nil slices are written as [].
func Encode(scenes []dink.Scene) ([]byte, error) {
	doc := make([]sceneJSON, 0, len(scenes))
	for _, sc := range scenes {
		js := sceneJSON{SceneID: sc.SceneID, Blocks: make([]blockJSON, 0, len(sc.Blocks))}
		for _, bl := range sc.Blocks {
			jb := blockJSON{BlockID: bl.BlockID, Snippets: make([]snippetJSON, 0, len(bl.Snippets)), Comments: bl.Comments}
			for _, sn := range bl.Snippets {
				jn := snippetJSON{SnippetID: sn.SnippetID, Beats: make([]beatJSON, 0, len(sn.Beats)), BraceComments: sn.BraceComments}
				for _, b := range sn.Beats {
					tags := b.Tags
					if tags == nil {
						tags = []string{}
					}
					jn.Beats = append(jn.Beats, beatJSON{
						Type:        b.Type.String(),
						LineID:      b.LineID,
						Text:        b.Text,
						Tags:        tags,
						CharacterID: b.CharacterID,
						Qualifier:   b.Qualifier,
						Direction:   b.Direction,
						Comments:    b.Comments,
						Group:       b.Group,
					})
				}
				jb.Snippets = append(jb.Snippets, jn)
			}
			js.Blocks = append(js.Blocks, jb)
		}
		doc = append(doc, js)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode reads a structure document. Missing strings decode as "" and missing lists as empty
// (Tags) or nil (containers, comment lists). A missing Group is 0.
func Decode(data []byte) ([]dink.Scene, error) {
	var doc []sceneJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode dink json: %w", err)
	}
	out := make([]dink.Scene, 0, len(doc))
	for _, js := range doc {
		sc := dink.Scene{SceneID: js.SceneID}
		for _, jb := range js.Blocks {
			bl := dink.Block{BlockID: jb.BlockID, Comments: jb.Comments}
			for _, jn := range jb.Snippets {
				sn := dink.Snippet{SnippetID: jn.SnippetID, BraceComments: jn.BraceComments}
				for _, b := range jn.Beats {
					tags := b.Tags
					if tags == nil {
						tags = []string{}
					}
					sn.Beats = append(sn.Beats, dink.Beat{
						Type:        dink.ParseBeatType(b.Type),
						LineID:      b.LineID,
						Text:        b.Text,
						Tags:        tags,
						CharacterID: b.CharacterID,
						Qualifier:   b.Qualifier,
						Direction:   b.Direction,
						Comments:    b.Comments,
						Group:       b.Group,
					})
				}
				bl.Snippets = append(bl.Snippets, sn)
			}
			sc.Blocks = append(sc.Blocks, bl)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Validate checks data against the embedded structure schema.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate dink json: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// DecodeStrict validates before decoding.
func DecodeStrict(data []byte) ([]dink.Scene, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	return Decode(data)
}

// Schema returns a copy of the embedded JSON schema.
func Schema() []byte { return bytes.Clone(schemaJSON) }

type minimalLine struct {
	LineID      string `json:"LineID"`
	BeatType    string `json:"BeatType"`
	CharacterID string `json:"CharacterID"`
	Qualifier   string `json:"Qualifier"`
}

type minimalAction struct {
	LineID   string `json:"LineID"`
	BeatType string `json:"BeatType"`
	Text     string `json:"Text,omitempty"`
}

// EncodeMinimal writes one compact object per beat, one per line, inside a JSON array.
// Action text is only included when includeActionText is set (actions that are not localised).
func EncodeMinimal(scenes []dink.Scene, includeActionText bool) ([]byte, error) {
	var lines [][]byte
	for _, sc := range scenes {
		for _, bl := range sc.Blocks {
			for _, sn := range bl.Snippets {
				for _, b := range sn.Beats {
					var v any
					if b.Type == dink.BeatAction {
						a := minimalAction{LineID: b.LineID, BeatType: b.Type.String()}
						if includeActionText {
							a.Text = b.Text
						}
						v = a
					} else {
						v = minimalLine{LineID: b.LineID, BeatType: b.Type.String(), CharacterID: b.CharacterID, Qualifier: b.Qualifier}
					}
					enc, err := json.Marshal(v)
					if err != nil {
						return nil, err
					}
					lines = append(lines, enc)
				}
			}
		}
	}
	var buf bytes.Buffer
	buf.WriteString("[\n")
	buf.Write(bytes.Join(lines, []byte(",\n")))
	if len(lines) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}
