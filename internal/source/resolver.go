/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dinkwriter/internal/dink"
	applog "dinkwriter/internal/log"
)

// ErrStartFile is returned when the root file itself cannot be read.
var ErrStartFile = errors.New("cannot read start file")

// Loader reads one file. OSLoader is the default; tests may substitute a map.
type Loader interface {
	ReadFile(path string) ([]byte, error)
}

// OSLoader reads from the local filesystem.
type OSLoader struct{}

func (OSLoader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// IncludeOrder selects how pending includes are taken from the work list.
type IncludeOrder int

const (
	// OrderStack takes the most recently discovered include first.
	OrderStack IncludeOrder = iota
	// OrderDeclaration visits includes breadth-first in the order they are written.
	OrderDeclaration
)

// ParseIncludeOrder maps the config values "stack" and "declaration".
func ParseIncludeOrder(s string) (IncludeOrder, error) {
	switch s {
	case "", "stack":
		return OrderStack, nil
	case "declaration":
		return OrderDeclaration, nil
	}
	return OrderStack, fmt.Errorf("unknown include order %q", s)
}

func (o IncludeOrder) String() string {
	if o == OrderDeclaration {
		return "declaration"
	}
	return "stack"
}

// Resolver loads a root file and everything it includes. All include paths are resolved
// against the root file's directory, not the including file's.
type Resolver struct {
	FS     Loader
	Order  IncludeOrder
	Logger *slog.Logger
}

// NewResolver returns a resolver reading from disk in stack order.
func NewResolver() *Resolver {
	return &Resolver{FS: OSLoader{}, Order: OrderStack}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return applog.WithComponent("include")
}

// Canonical returns the cleaned absolute form of path.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// LoadAll builds the SourceMap reachable from startPath. Each canonical path is loaded once, so
// include cycles terminate. An unreadable include is logged, recorded in Missing and skipped.
func (r *Resolver) LoadAll(startPath string) (*SourceMap, error) {
	fsys := r.FS
	if fsys == nil {
		fsys = OSLoader{}
	}
	l := applog.WithOperation(r.logger(), "load_all")

	start, err := Canonical(startPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStartFile, startPath, err)
	}
	root := filepath.Dir(start)
	sm := NewSourceMap()

	pending := []string{filepath.Base(start)}
	for len(pending) > 0 {
		var rel string
		if r.Order == OrderDeclaration {
			rel, pending = pending[0], pending[1:]
		} else {
			rel, pending = pending[len(pending)-1], pending[:len(pending)-1]
		}
		full := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
		if sm.Has(full) {
			continue
		}
		data, err := fsys.ReadFile(full)
		if err != nil {
			if full == start {
				return nil, fmt.Errorf("%w: %s: %v", ErrStartFile, full, err)
			}
			l.WarnContext(applog.WithSourceFile(context.Background(), full), "failed to load included file", slog.Any("err", err))
			sm.addMissing(full)
			continue
		}
		text := string(data)
		sm.Add(full, text)
		includes := FindIncludes(dink.StripBlockComments(text))
		l.Debug("loaded source", slog.String("path", full), slog.Int("includes", len(includes)))
		pending = append(pending, includes...)
	}
	l.Info("sources loaded", slog.Int("files", sm.Len()), slog.Int("missing", len(sm.missing)), slog.String("order", r.Order.String()))
	return sm, nil
}

// ParseAll parses every text of the map in map order and concatenates the scenes.
// A format error is returned with the offending file's path.
func ParseAll(sm *SourceMap, p *dink.Parser) ([]dink.Scene, error) {
	var out []dink.Scene
	for _, path := range sm.Paths() {
		text, _ := sm.Text(path)
		scenes, err := p.ParseText(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, scenes...)
	}
	return out, nil
}
