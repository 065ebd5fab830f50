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
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	applog "dinkwriter/internal/log"
)

// ErrFormat is the only fatal parse condition: an expression clause with content after its colon
// inside a #dink region. Use errors.Is(err, ErrFormat) or errors.As with *FormatError.
var ErrFormat = errors.New("dink format error")

// FormatError carries the position of the offending line (1-based).
type FormatError struct {
	Line int
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("dink format error at line %d: expression has content after colon: %q", e.Line, e.Text)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

const (
	snippetIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	snippetIDLength   = 4
)

// braceFrame is one open "{" and the comments written above it.
type braceFrame struct {
	parent   *braceFrame
	comments []string
}

// all returns the frame's comments followed by those of every enclosing frame.
func (f *braceFrame) all() []string {
	var out []string
	for ; f != nil; f = f.parent {
		out = append(out, f.comments...)
	}
	return out
}

// Parser turns Dink source into scenes. A Parser owns its random source and is not safe for
// concurrent use; create one per goroutine.
type Parser struct {
	rng *rand.Rand
	log *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithRand sets the random source used for generated snippet ids (seed it for reproducible output).
func WithRand(r *rand.Rand) Option { return func(p *Parser) { p.rng = r } }

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option { return func(p *Parser) { p.log = l } }

// NewParser returns a parser with a freshly seeded random source.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, o := range opts {
		o(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if p.log == nil {
		p.log = applog.WithComponent("parser")
	}
	return p
}

// NewSnippetID draws a 4 character alphanumeric id. Collisions are not checked.
func (p *Parser) NewSnippetID() string {
	var b [snippetIDLength]byte
	for i := range b {
		b[i] = snippetIDAlphabet[p.rng.IntN(len(snippetIDAlphabet))]
	}
	return string(b[:])
}

// Parse parses one source text with a new Parser.
func Parse(text string) ([]Scene, error) {
	return NewParser().ParseText(text)
}

// ParseText strips block comments, splits the text into lines and parses them.
func (p *Parser) ParseText(text string) ([]Scene, error) {
	return p.ParseLines(SplitLines(StripBlockComments(text)))
}

// ParseLines runs the scene/block/snippet state machine over the lines.
//
// Rules, per trimmed line (after cutting a trailing // comment):
//   - a flow break (choice bullet, gather, divert, unbalanced "{") closes the current snippet
//     and evaluation continues with the remaining rules
//   - a line opening more braces than it closes pushes a brace frame that takes the pending
//     comments; beats inside a shuffle/cycle/once/stopping group carry that group's number
//   - "- expr:" closes the snippet; "- expr: content" inside #dink aborts with a *FormatError
//   - "== knot" closes snippet, block and scene, leaves #dink mode and opens a new scene
//   - "= stitch" closes snippet and block and opens a new block
//   - knot and stitch headers take the pending comments onto the new block
//   - "#dink" enables capture, "// ..." is a comment
//   - dialogue lines become Line beats inside #dink and are reported outside it
//   - tagged prose becomes an Action beat inside #dink
//
// Empty containers are never emitted. On error the returned scenes are nil.
func (p *Parser) ParseLines(lines []string) ([]Scene, error) {
	l := applog.WithOperation(p.log, "parse_lines")

	var out []Scene
	scene := Scene{}
	block := Block{}
	snippet := Snippet{SnippetID: p.NewSnippetID()}
	active := false
	var comments []string

	var brace *braceFrame
	depth, group, groupDepth := 0, 0, 0

	flushSnippet := func() {
		if len(snippet.Beats) > 0 {
			block.Snippets = append(block.Snippets, snippet)
			snippet = Snippet{SnippetID: p.NewSnippetID()}
		}
		snippet.BraceComments = brace.all()
	}
	flushBlock := func() {
		flushSnippet()
		if len(block.Snippets) > 0 {
			scene.Blocks = append(scene.Blocks, block)
		}
	}
	flushScene := func() {
		flushBlock()
		if len(scene.Blocks) > 0 {
			out = append(out, scene)
		}
	}
	addBeat := func(b Beat) {
		if b.LineID == "" {
			l.Warn("beat missing line id", slog.String("beat", b.String()))
		}
		if len(comments) > 0 {
			b.Comments = comments
			comments = nil
		}
		if groupDepth > 0 {
			b.Group = group
		}
		snippet.Beats = append(snippet.Beats, b)
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if idx := strings.LastIndex(line, "//"); idx > 0 {
			if c := strings.TrimSpace(line[idx+2:]); c != "" {
				comments = append(comments, c)
			}
			line = strings.TrimSpace(line[:idx])
		}

		opens, closes := strings.Count(line, "{"), strings.Count(line, "}")
		switch {
		case opens > closes:
			brace = &braceFrame{parent: brace, comments: comments}
			comments = nil
			depth++
			if groupDepth == 0 && ContainsInkGroup(line) {
				groupDepth = depth
				group++
			}
		case closes > opens:
			depth = max(0, depth-1)
			if depth < groupDepth {
				groupDepth = 0
			}
			if brace != nil {
				brace = brace.parent
			}
		}

		c := Classify(line, active)
		if c.FlowBreak {
			flushSnippet()
		}

		switch c.Kind {
		case LineExpressionError:
			l.Error("expression clause has content after colon", slog.Int("line", i+1), slog.String("text", line))
			return nil, &FormatError{Line: i + 1, Text: line}
		case LineExpression:
			flushSnippet()
			comments = nil
		case LineScene:
			flushScene()
			active = false
			scene = Scene{SceneID: c.Name}
			block = Block{Comments: comments}
			snippet = Snippet{SnippetID: p.NewSnippetID(), BraceComments: brace.all()}
			comments = nil
			l.Debug("began scene", slog.String("scene", c.Name))
		case LineBlock:
			flushBlock()
			block = Block{BlockID: c.Name, Comments: comments}
			snippet = Snippet{SnippetID: p.NewSnippetID(), BraceComments: brace.all()}
			comments = nil
			l.Debug("began block", slog.String("block", c.Name))
		case LineModeMarker:
			active = true
			l.Debug("dink capture enabled", slog.String("scene", scene.SceneID))
		case LineComment:
			if c.Name != "" {
				comments = append(comments, c.Name)
			}
		case LineDialogue:
			if !active {
				l.Warn("dialogue outside a #dink section ignored", slog.Int("line", i+1), slog.String("beat", c.Beat.String()))
				comments = nil
				continue
			}
			addBeat(c.Beat)
		case LineAction:
			addBeat(c.Beat)
		default:
			comments = nil
		}
	}
	flushScene()

	l.Debug("parsed", slog.Int("scenes", len(out)), slog.Int("lines", len(lines)))
	return out, nil
}
