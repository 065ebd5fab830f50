/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package build

import (
	"fmt"
	"sort"
	"strings"

	"dinkwriter/internal/dink"
)

// Stats summarises a parsed structure.
type Stats struct {
	Files        int
	MissingFiles int
	Scenes       int
	Blocks       int
	Snippets     int
	Beats        int
	Lines        int
	Actions      int
	Words        int
	MissingIDs   int
	// PerCharacter counts dialogue lines per character id.
	PerCharacter map[string]int
}

// Collect counts scenes, beats, words and lines per character.
func Collect(scenes []dink.Scene) Stats {
	s := Stats{PerCharacter: map[string]int{}}
	for _, sc := range scenes {
		s.Scenes++
		for _, bl := range sc.Blocks {
			s.Blocks++
			for _, sn := range bl.Snippets {
				s.Snippets++
				for _, b := range sn.Beats {
					s.Beats++
					s.Words += len(strings.Fields(b.Text))
					if b.LineID == "" {
						s.MissingIDs++
					}
					if b.Type == dink.BeatAction {
						s.Actions++
						continue
					}
					s.Lines++
					s.PerCharacter[b.CharacterID]++
				}
			}
		}
	}
	return s
}

// Characters returns the character ids ordered by line count, then name.
func (s Stats) Characters() []string {
	out := make([]string, 0, len(s.PerCharacter))
	for c := range s.PerCharacter {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.PerCharacter[out[i]] != s.PerCharacter[out[j]] {
			return s.PerCharacter[out[i]] > s.PerCharacter[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func (s Stats) String() string {
	return fmt.Sprintf("%d files, %d scenes, %d blocks, %d snippets, %d beats (%d lines, %d actions), %d words, %d missing ids",
		s.Files, s.Scenes, s.Blocks, s.Snippets, s.Beats, s.Lines, s.Actions, s.Words, s.MissingIDs)
}
