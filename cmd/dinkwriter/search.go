/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strings"

	"dinkwriter/internal/storage"

	"github.com/spf13/cobra"
)

func (a *app) searchCmd() *cobra.Command {
	var q storage.SearchQuery
	var project, lineID string
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the beats stored by parse --snapshot/--reconcile",
		Long: `Search indexed beats with SQLite FTS5 syntax. Output is tab separated:
  root, scene, block, snippet, line id, character, excerpt or text`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Text = args[0]
			}
			db, err := a.openIndex(cmd.Context(), project)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var hits []storage.SearchHit
			if lineID != "" {
				hits, err = storage.FindLine(cmd.Context(), db, lineID)
			} else {
				hits, err = storage.SearchBeats(cmd.Context(), db, q)
			}
			if err != nil {
				return err
			}
			for _, h := range hits {
				text := h.Excerpt
				if text == "" {
					text = h.Text
				}
				fmt.Fprintln(a.stdout, strings.Join([]string{h.Root, h.SceneID, h.BlockID, h.SnippetID, h.LineID, h.CharacterID, text}, "\t"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", ".", "project directory holding the index")
	cmd.Flags().StringVar(&q.Root, "root", "", "only beats of this root file")
	cmd.Flags().StringVar(&q.Character, "character", "", "only lines of this character")
	cmd.Flags().StringVar(&q.Scene, "scene", "", "only beats of this scene")
	cmd.Flags().StringVar(&q.Type, "type", "", "Line or Action")
	cmd.Flags().StringSliceVar(&q.Tags, "tag", nil, "require tag (repeatable)")
	cmd.Flags().IntVar(&q.Limit, "limit", 100, "maximum number of hits")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "skip this many hits")
	cmd.Flags().StringVar(&lineID, "line", "", "look up a line id instead of searching")
	return cmd
}
