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
	"os"

	"dinkwriter/internal/dink"
	"dinkwriter/internal/dinkjson"

	"github.com/spf13/cobra"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Check a structure JSON file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			scenes, err := dinkjson.DecodeStrict(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = fmt.Fprintf(a.stdout, "%s: ok (%d scenes, %d snippets)\n", args[0], len(scenes), len(dink.FlattenSnippets(scenes)))
			return err
		},
	}
}

func readScenes(path string) ([]dink.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scenes, err := dinkjson.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenes, nil
}

func (a *app) matchCmd() *cobra.Command {
	var newPath, oldPath string
	var minOverlap float64
	cmd := &cobra.Command{
		Use:   "match --new new.json --old old.json",
		Short: "Report which earlier snippet each new snippet corresponds to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fresh, err := readScenes(newPath)
			if err != nil {
				return err
			}
			prior, err := readScenes(oldPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-overlap") {
				minOverlap = a.cfg.Parser.MinOverlap
			}
			existing := dink.FlattenSnippets(prior)
			byID := make(map[string]dink.Snippet, len(existing))
			for _, s := range existing {
				byID[s.SnippetID] = s
			}
			matched := 0
			for _, sn := range dink.FlattenSnippets(fresh) {
				id, ok := dink.FindBestMatch(sn.BeatIDs(), existing, minOverlap)
				if !ok {
					fmt.Fprintf(a.stdout, "%s -> (new)\n", sn.SnippetID)
					continue
				}
				matched++
				fmt.Fprintf(a.stdout, "%s -> %s (%.2f)\n", sn.SnippetID, id, dink.Jaccard(sn.BeatIDs(), byID[id].BeatIDs()))
			}
			_, err = fmt.Fprintf(a.stdout, "%d of %d snippets matched\n", matched, len(dink.FlattenSnippets(fresh)))
			return err
		},
	}
	cmd.Flags().StringVar(&newPath, "new", "", "structure JSON of the new parse")
	cmd.Flags().StringVar(&oldPath, "old", "", "structure JSON of the earlier parse")
	cmd.Flags().Float64Var(&minOverlap, "min-overlap", dink.DefaultMinOverlap, "minimum Jaccard score for a match")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("old")
	return cmd
}
