/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package source

import (
	"strings"

	"dinkwriter/internal/dink"
)

const includeKeyword = "INCLUDE"

// ParseInclude recognises "INCLUDE <path>" with an optional trailing "//" or "**" comment.
// The path is one or more segments separated by '/', where a segment holds no whitespace,
// '/' or '*'.
func ParseInclude(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, includeKeyword) {
		return "", false
	}
	rest := s[len(includeKeyword):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	rest = strings.TrimLeft(rest, " \t")

	i := 0
	for {
		start := i
		for i < len(rest) && !isPathStop(rest[i]) {
			i++
		}
		if i == start {
			return "", false
		}
		// another segment follows only if '/' is directly followed by a segment byte
		if i+1 < len(rest) && rest[i] == '/' && !isPathStop(rest[i+1]) {
			i++
			continue
		}
		break
	}
	path := rest[:i]
	tail := strings.TrimLeft(rest[i:], " \t")
	if tail != "" && !strings.HasPrefix(tail, "//") && !strings.HasPrefix(tail, "**") {
		return "", false
	}
	return path, true
}

func isPathStop(c byte) bool {
	return c == ' ' || c == '\t' || c == '/' || c == '*'
}

// FindIncludes returns the include paths of text in line order. Block comments must already be removed.
func FindIncludes(text string) []string {
	var out []string
	for _, line := range dink.SplitLines(text) {
		if p, ok := ParseInclude(line); ok {
			out = append(out, p)
		}
	}
	return out
}
