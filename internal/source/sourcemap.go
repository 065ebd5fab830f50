/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package source loads a Dink root file and every file it reaches through INCLUDE directives.
package source

// SourceMap maps canonical absolute paths to raw file text. Iteration order is discovery order.
type SourceMap struct {
	order   []string
	texts   map[string]string
	missing []string
}

// NewSourceMap returns an empty map.
func NewSourceMap() *SourceMap {
	return &SourceMap{texts: make(map[string]string)}
}

// Add records a file. It reports false and keeps the first text when the path is already present.
func (m *SourceMap) Add(path, text string) bool {
	if _, ok := m.texts[path]; ok {
		return false
	}
	m.texts[path] = text
	m.order = append(m.order, path)
	return true
}

// Has reports whether path was loaded.
func (m *SourceMap) Has(path string) bool {
	_, ok := m.texts[path]
	return ok
}

// Text returns the raw text of a loaded path.
func (m *SourceMap) Text(path string) (string, bool) {
	t, ok := m.texts[path]
	return t, ok
}

// Paths returns the loaded paths in discovery order.
func (m *SourceMap) Paths() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of loaded files.
func (m *SourceMap) Len() int { return len(m.order) }

// Missing lists included paths that could not be read.
func (m *SourceMap) Missing() []string {
	return append([]string(nil), m.missing...)
}

func (m *SourceMap) addMissing(path string) {
	for _, p := range m.missing {
		if p == path {
			return
		}
	}
	m.missing = append(m.missing, path)
}
