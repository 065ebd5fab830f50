/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import "strings"

// LineKind is the result of classifying one source line.
type LineKind int

const (
	LineNone LineKind = iota
	LineExpression
	LineExpressionError
	LineScene
	LineBlock
	LineModeMarker
	LineComment
	LineDialogue
	LineAction
)

func (k LineKind) String() string {
	switch k {
	case LineExpression:
		return "expression"
	case LineExpressionError:
		return "expression-error"
	case LineScene:
		return "scene"
	case LineBlock:
		return "block"
	case LineModeMarker:
		return "mode-marker"
	case LineComment:
		return "comment"
	case LineDialogue:
		return "dialogue"
	case LineAction:
		return "action"
	default:
		return "none"
	}
}

// ModeMarker switches the parser into capturing dialogue and action beats until the next scene header.
const ModeMarker = "#dink"

// Classification describes what a line means to the hierarchy builder.
// FlowBreak is independent of Kind: a bulleted dialogue line both breaks the flow and carries a beat.
type Classification struct {
	FlowBreak bool
	Kind      LineKind
	// Name is the scene/block identifier, the expression text, or the comment body.
	Name string
	Beat Beat
}

// Classify runs the line rules in precedence order. The line must already be trimmed and have its
// trailing // comment removed. Action lines are only recognised while active is true; dialogue lines
// are always recognised so the caller can warn about dialogue outside a #dink region.
func Classify(line string, active bool) Classification {
	c := Classification{FlowBreak: isFlowBreak(line)}

	if expr, hasContent, ok := matchExpressionClause(line); ok {
		c.Name = expr
		c.Kind = LineExpression
		if hasContent && active {
			c.Kind = LineExpressionError
		}
		return c
	}
	if level, id, ok := matchHeader(line); ok {
		c.Name = id
		if level >= 2 {
			c.Kind = LineScene
		} else {
			c.Kind = LineBlock
		}
		return c
	}
	if line == ModeMarker {
		c.Kind = LineModeMarker
		return c
	}
	if strings.HasPrefix(line, "//") {
		c.Kind = LineComment
		c.Name = strings.TrimSpace(line[2:])
		return c
	}
	if b, ok := matchDialogue(line); ok {
		c.Kind = LineDialogue
		c.Beat = b
		return c
	}
	if active {
		if b, ok := matchAction(line); ok {
			c.Kind = LineAction
			c.Beat = b
		}
	}
	return c
}

// isFlowBreak reports choice bullets, gathers, diverts, tunnels/threads and lines that open more
// braces than they close.
func isFlowBreak(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line[0] {
	case '*', '-', '+':
		return true
	}
	if strings.Contains(line, "->") || strings.Contains(line, "<-") {
		return true
	}
	return strings.Count(line, "{") > strings.Count(line, "}")
}

// matchExpressionClause recognises "- <expr>:" conditional branches, e.g. "- x > 3:".
// A dash followed by a bare character name ("- FRED: hi") is dialogue, not an expression.
func matchExpressionClause(line string) (expr string, hasContent bool, ok bool) {
	if !strings.HasPrefix(line, "-") {
		return "", false, false
	}
	rest := line[1:]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return "", false, false
	}
	raw := rest[:colon]
	if strings.ContainsRune(raw, '#') {
		return "", false, false
	}
	expr = strings.TrimSpace(raw)
	if expr == "" || isCharacterName(expr) {
		return "", false, false
	}
	return expr, strings.TrimSpace(rest[colon+1:]) != "", true
}

// isCharacterName matches an upper-case identifier of at least two characters starting with a letter.
func isCharacterName(s string) bool {
	if len(s) < 2 || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isCharacterIDByte(s[i]) {
			return false
		}
	}
	return true
}

func isCharacterIDByte(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || isCharacterIDByte(c)
}

var inkGroupWords = []string{"shuffle", "cycle", "once", "stopping"}

// ContainsInkGroup reports whether a brace line opens a shuffle, cycle, once or stopping sequence.
// The keyword must stand as a whole word.
func ContainsInkGroup(line string) bool {
	for _, w := range inkGroupWords {
		for from := 0; from < len(line); {
			i := strings.Index(line[from:], w)
			if i < 0 {
				break
			}
			i += from
			end := i + len(w)
			if (i == 0 || !isWordByte(line[i-1])) && (end == len(line) || !isWordByte(line[end])) {
				return true
			}
			from = i + 1
		}
	}
	return false
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// matchHeader recognises "== knot" (level >= 2) and "= stitch" (level 1). Anything after the
// identifier (closing "===", parameters) is ignored.
func matchHeader(line string) (level int, id string, ok bool) {
	i := 0
	for i < len(line) && line[i] == '=' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	level = i
	i = skipSpace(line, i)
	start := i
	for i < len(line) && isWordByte(line[i]) {
		i++
	}
	if i == start {
		return 0, "", false
	}
	return level, line[start:i], true
}

// parenthetical reads "(...)" at s[i:], returning the inner text and the index after ')'.
func parenthetical(s string, i int) (inner string, next int, ok bool) {
	if i >= len(s) || s[i] != '(' {
		return "", i, false
	}
	end := strings.IndexByte(s[i+1:], ')')
	if end < 0 {
		return "", i, false
	}
	return s[i+1 : i+1+end], i + end + 2, true
}

// splitTagRun separates "text #a #b" into its text and the trailing tag run. The run must reach the end
// of the line and consist only of #token items; required demands at least one tag.
func splitTagRun(s string, required bool) (text, tags string, ok bool) {
	idx := strings.IndexByte(s, '#')
	if idx < 0 {
		if required {
			return "", "", false
		}
		return strings.TrimSpace(s), "", true
	}
	tags = strings.TrimSpace(s[idx:])
	if !isTagRun(tags) {
		return "", "", false
	}
	return strings.TrimSpace(s[:idx]), tags, true
}

func isTagRun(s string) bool {
	i := 0
	for {
		if i >= len(s) || s[i] != '#' {
			return false
		}
		i++
		start := i
		for i < len(s) && s[i] != '#' && !isSpace(s[i]) {
			i++
		}
		if i == start {
			return false
		}
		i = skipSpace(s, i)
		if i == len(s) {
			return true
		}
	}
}

// matchDialogue parses
//
//	[bullet] CHARACTER [(qualifier)] : [(direction)] text [#tag ...]
func matchDialogue(line string) (Beat, bool) {
	s := strings.TrimSpace(line)
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+' || s[i] == '*') {
		i = skipSpace(s, i+1)
	}
	start := i
	for i < len(s) && isCharacterIDByte(s[i]) {
		i++
	}
	if i == start {
		return Beat{}, false
	}
	b := Beat{Type: BeatLine, CharacterID: s[start:i]}
	i = skipSpace(s, i)
	if q, next, ok := parenthetical(s, i); ok {
		b.Qualifier = q
		i = skipSpace(s, next)
	}
	if i >= len(s) || s[i] != ':' {
		return Beat{}, false
	}
	i = skipSpace(s, i+1)
	if d, next, ok := parenthetical(s, i); ok {
		b.Direction = d
		i = skipSpace(s, next)
	}
	text, tags, ok := splitTagRun(s[i:], false)
	if !ok {
		return Beat{}, false
	}
	b.Text = text
	b.LineID, b.Tags = ExtractTags(tags)
	return b, true
}

// matchAction parses "[-] text #tag [#tag ...]". At least one tag is mandatory; untagged prose is
// not an action beat. Choice bullets, diverts and ~ logic lines never become actions.
func matchAction(line string) (Beat, bool) {
	s := strings.TrimSpace(line)
	if strings.HasPrefix(s, "-") {
		s = strings.TrimSpace(s[1:])
	}
	text, tags, ok := splitTagRun(s, true)
	if !ok || text == "" {
		return Beat{}, false
	}
	switch text[0] {
	case '*', '+', '>', '~':
		return Beat{}, false
	}
	if strings.Contains(text, "->") || strings.Contains(text, "<-") {
		return Beat{}, false
	}
	b := Beat{Type: BeatAction, Text: text}
	b.LineID, b.Tags = ExtractTags(tags)
	return b, true
}
