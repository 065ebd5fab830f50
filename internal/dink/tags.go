/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import "strings"

// IDTagPrefix marks the tag that carries a beat's stable line id, e.g. #id:intro_01.
const IDTagPrefix = "id:"

// ExtractTags splits a "#a #b #id:x" suffix into the line id and the remaining tags.
// Tags keep their order and duplicates. The returned slice is never nil.
func ExtractTags(raw string) (id string, tags []string) {
	tags = []string{}
	for _, tok := range strings.Split(raw, "#") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, IDTagPrefix) {
			id = tok[len(IDTagPrefix):]
			continue
		}
		tags = append(tags, tok)
	}
	return id, tags
}

// FormatTags renders an id and tags back into suffix form; ExtractTags(FormatTags(id, tags)) is lossless
// for tags without whitespace or '#'.
func FormatTags(id string, tags []string) string {
	parts := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		parts = append(parts, "#"+t)
	}
	if id != "" {
		parts = append(parts, "#"+IDTagPrefix+id)
	}
	return strings.Join(parts, " ")
}
