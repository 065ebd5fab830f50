/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dink

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripBlockComments(t *testing.T) {
	cases := map[string]struct{ in, want string }{
		"none":         {"FRED: hi", "FRED: hi"},
		"inline":       {"a /* x */ b", "a  b"},
		"multi line":   {"a /* x\ny\nz */b\nc", "a \n\nb\nc"},
		"two spans":    {"/*1*/a/*2*/b", "ab"},
		"unterminated": {"a /* never closed", "a /* never closed"},
		"line comment": {"a // b", "a // b"},
		"no nesting":   {"/* a /* b */ c */", " c */"},
		"crlf kept":    {"a/*\r\n*/b", "a\r\nb"},
	}
	for name, tc := range cases {
		if got := StripBlockComments(tc.in); got != tc.want {
			t.Fatalf("%s: got %q want %q", name, got, tc.want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("a\r\nb\rc\n\nd")
	want := []string{"a", "b", "c", "", "d"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}
