/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package build runs the full pipeline for one root file: resolve includes, parse each file
// and collect statistics. Per-file results are cached by content so an unchanged file keeps its
// snippet ids across rebuilds.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dinkwriter/internal/dink"
	applog "dinkwriter/internal/log"
	"dinkwriter/internal/source"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed files kept by a Builder.
const DefaultCacheSize = 256

// Result is one build of a root file.
type Result struct {
	Start    string
	Sources  *source.SourceMap
	Scenes   []dink.Scene
	Stats    Stats
	Duration time.Duration
}

// Builder is safe for concurrent use; builds are serialized.
type Builder struct {
	mu       sync.Mutex
	resolver *source.Resolver
	parser   *dink.Parser
	cache    *lru.Cache[string, []dink.Scene]
	log      *slog.Logger
}

// New returns a builder. A nil resolver reads from disk in stack order; a nil parser gets a fresh random source.
func New(resolver *source.Resolver, parser *dink.Parser, cacheSize int) (*Builder, error) {
	if resolver == nil {
		resolver = source.NewResolver()
	}
	if parser == nil {
		parser = dink.NewParser()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []dink.Scene](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Builder{resolver: resolver, parser: parser, cache: cache, log: applog.WithComponent("build")}, nil
}

func cacheKey(path, text string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Build loads startPath with all its includes and parses every file in source map order.
// The returned scenes are copies and may be modified by the caller.
func (b *Builder) Build(ctx context.Context, startPath string) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	began := time.Now()
	l := applog.WithOperation(b.log, "build")

	sm, err := b.resolver.LoadAll(startPath)
	if err != nil {
		return nil, err
	}
	res := &Result{Start: startPath, Sources: sm}
	hits := 0
	for _, path := range sm.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _ := sm.Text(path)
		key := cacheKey(path, text)
		scenes, ok := b.cache.Get(key)
		if ok {
			hits++
		} else {
			scenes, err = b.parser.ParseText(text)
			if err != nil {
				l.ErrorContext(applog.WithSourceFile(ctx, path), "parse failed", slog.Any("err", err))
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			b.cache.Add(key, scenes)
		}
		res.Scenes = append(res.Scenes, dink.Clone(scenes)...)
	}
	res.Stats = Collect(res.Scenes)
	res.Stats.Files = sm.Len()
	res.Stats.MissingFiles = len(sm.Missing())
	res.Duration = time.Since(began)

	l.InfoContext(ctx, "build finished",
		slog.String("start", startPath),
		slog.Int("files", res.Stats.Files),
		slog.Int("cached", hits),
		slog.Int("scenes", res.Stats.Scenes),
		slog.Int("beats", res.Stats.Beats),
		slog.Duration("took", res.Duration))
	return res, nil
}

// Purge drops all cached parse results.
func (b *Builder) Purge() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Purge()
}
