/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import "strings"

// StripBlockComments removes every /* ... */ span, including spans that cover several lines.
// The line breaks inside a span are kept so line numbers still match the source.
// Comments do not nest; an unterminated "/*" is left in place. Line comments are untouched.
func StripBlockComments(text string) string {
	from := 0
	for {
		open := strings.Index(text[from:], "/*")
		if open < 0 {
			return text
		}
		open += from
		end := strings.Index(text[open+2:], "*/")
		if end < 0 {
			return text
		}
		stop := open + 2 + end + 2
		breaks := lineBreaks(text[open:stop])
		text = text[:open] + breaks + text[stop:]
		from = open + len(breaks)
	}
}

func lineBreaks(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// SplitLines splits on \r\n, \n or \r. Empty lines are kept so indexes stay aligned with source lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
