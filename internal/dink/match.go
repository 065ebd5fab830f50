/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import "strings"

// DefaultMinOverlap is the Jaccard score a prior snippet needs to hand its id to a new one.
const DefaultMinOverlap = 0.5

// idSet builds a case-insensitive set of the non-empty ids.
func idSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		m[strings.ToLower(id)] = struct{}{}
	}
	return m
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the non-empty ids, or 0 when both are empty.
func Jaccard(a, b []string) float64 {
	return jaccard(idSet(a), idSet(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// FindBestMatch returns the id of the existing snippet whose line ids overlap most with newBeatIDs.
// The first snippet reaching the highest score wins. No match is reported when the best score is
// below minOverlap, or when either side has no ids; the caller should then mint a fresh id.
func FindBestMatch(newBeatIDs []string, existing []Snippet, minOverlap float64) (string, bool) {
	newSet := idSet(newBeatIDs)
	if len(newSet) == 0 || len(existing) == 0 {
		return "", false
	}
	bestID := ""
	bestScore := 0.0
	found := false
	for _, s := range existing {
		old := idSet(s.BeatIDs())
		if len(old) == 0 {
			continue
		}
		if score := jaccard(newSet, old); score > bestScore {
			bestScore = score
			bestID = s.SnippetID
			found = true
		}
	}
	if !found || bestScore < minOverlap {
		return "", false
	}
	return bestID, true
}

// ReconcileSnippetIDs gives freshly parsed snippets the id of their best matching prior snippet so ids
// survive re-parses of edited source. Each prior id is handed out at most once, in source order.
// It returns how many snippet ids changed. The parser never calls this on its own.
func ReconcileSnippetIDs(scenes []Scene, prior []Snippet, minOverlap float64) int {
	used := make(map[string]struct{})
	changed := 0
	for i := range scenes {
		for _, sn := range scenes[i].Snippets() {
			candidates := make([]Snippet, 0, len(prior))
			for _, p := range prior {
				if _, taken := used[p.SnippetID]; !taken {
					candidates = append(candidates, p)
				}
			}
			id, ok := FindBestMatch(sn.BeatIDs(), candidates, minOverlap)
			if !ok {
				continue
			}
			used[id] = struct{}{}
			if sn.SnippetID != id {
				sn.SnippetID = id
				changed++
			}
		}
	}
	return changed
}

// FlattenSnippets lists every snippet of the scenes in order.
func FlattenSnippets(scenes []Scene) []Snippet {
	var out []Snippet
	for _, sc := range scenes {
		for _, bl := range sc.Blocks {
			out = append(out, bl.Snippets...)
		}
	}
	return out
}
