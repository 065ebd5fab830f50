/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package watch rebuilds a Dink root file whenever one of its sources changes on disk.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"dinkwriter/internal/build"
	applog "dinkwriter/internal/log"
	"dinkwriter/internal/source"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of events an editor produces for a single save.
const DefaultDebounce = 500 * time.Millisecond

// BuildFunc produces a build of the root file. (*build.Builder).Build satisfies it.
type BuildFunc func(ctx context.Context, start string) (*build.Result, error)

// Stats describes watcher activity.
type Stats struct {
	Builds    int
	Failures  int
	Events    int
	LastError error
	LastBuild time.Time
}

// Watcher watches every file of the last build plus the includes that could not be loaded,
// so creating a missing include also triggers a rebuild. The watched set is refreshed after
// each build because includes can change.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	start    string
	build    BuildFunc
	onBuild  func(*build.Result, error)
	debounce time.Duration
	files    map[string]struct{}
	dirs     map[string]struct{}
	stats    Stats
	running  bool
	closed   bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last relevant event before rebuilding.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnBuild registers the callback invoked after every build, from the watcher goroutine.
func WithOnBuild(fn func(*build.Result, error)) Option {
	return func(w *Watcher) { w.onBuild = fn }
}

// New prepares a watcher for startPath. Nothing is watched until Start.
func New(startPath string, fn BuildFunc, opts ...Option) (*Watcher, error) {
	if fn == nil {
		return nil, errors.New("watch: build function required")
	}
	start, err := source.Canonical(startPath)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		start:    start,
		build:    fn,
		debounce: DefaultDebounce,
		files:    map[string]struct{}{start: {}},
		dirs:     make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      applog.WithComponent("watch"),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Start runs an initial build and then watches in a goroutine until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("watch: watcher stopped")
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.rebuild(ctx)
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the watcher goroutine. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	running := w.running
	w.mu.Unlock()

	close(w.stopCh)
	if running {
		<-w.doneCh
	}
	if err := w.fsw.Close(); err != nil {
		w.log.Error("closing watcher failed", slog.Any("err", err))
	}
	w.log.Debug("watcher stopped")
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Watched returns the watched files, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", slog.Any("err", err))
		case <-timer.C:
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[name]
	if ok {
		w.stats.Events++
		w.log.Debug("source changed", slog.String("path", name), slog.String("op", ev.Op.String()))
	}
	return ok
}

func (w *Watcher) rebuild(ctx context.Context) {
	res, err := w.build(ctx, w.start)

	files := map[string]struct{}{w.start: {}}
	if res != nil && res.Sources != nil {
		for _, p := range res.Sources.Paths() {
			files[p] = struct{}{}
		}
		for _, p := range res.Sources.Missing() {
			files[p] = struct{}{}
		}
	}

	w.mu.Lock()
	w.stats.Builds++
	w.stats.LastBuild = time.Now()
	w.stats.LastError = err
	if err != nil {
		w.stats.Failures++
		// keep watching what we had; a broken file still has to be fixed in place
		for p := range w.files {
			files[p] = struct{}{}
		}
	}
	w.files = files
	w.syncDirsLocked()
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("build failed, watching for fixes", slog.Any("err", err))
	} else {
		w.log.Info("build succeeded, watching for changes", slog.Int("files", len(files)))
	}
	if w.onBuild != nil {
		w.onBuild(res, err)
	}
}

// syncDirsLocked watches the directories of the current files and drops the ones no longer needed.
func (w *Watcher) syncDirsLocked() {
	want := make(map[string]struct{})
	for f := range w.files {
		want[filepath.Dir(f)] = struct{}{}
	}
	for d := range want {
		if _, ok := w.dirs[d]; ok {
			continue
		}
		if err := w.fsw.Add(d); err != nil {
			w.log.Warn("cannot watch directory", slog.String("dir", d), slog.Any("err", err))
			continue
		}
		w.dirs[d] = struct{}{}
	}
	for d := range w.dirs {
		if _, ok := want[d]; ok {
			continue
		}
		_ = w.fsw.Remove(d)
		delete(w.dirs, d)
	}
}
