/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"dinkwriter/internal/build"
	"dinkwriter/internal/dink"
	"dinkwriter/internal/dinkjson"
	"dinkwriter/internal/export"
	"dinkwriter/internal/storage"

	"github.com/spf13/cobra"
)

func (a *app) parseCmd() *cobra.Command {
	var asJSON, reconcile, snapshot bool
	var out string
	cmd := &cobra.Command{
		Use:   "parse <file.ink>",
		Short: "Parse a root file with its includes and print the scene tree",
		Long: `Parse a root .ink file and every file it includes.

Without flags a readable tree and statistics are printed. --json emits the structure JSON.
--reconcile reuses snippet ids from the latest snapshot in the project index and stores the
result as a new snapshot; --snapshot stores it without reconciling.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := a.buildFile(ctx, args[0])
			if err != nil {
				return err
			}
			if reconcile || a.cfg.Parser.Reconcile || snapshot {
				if err := a.storeBuild(ctx, args[0], res, reconcile || a.cfg.Parser.Reconcile); err != nil {
					return err
				}
			}
			if asJSON {
				data, err := dinkjson.Encode(res.Scenes)
				if err != nil {
					return err
				}
				return writeOutput(a.stdout, out, data)
			}
			var sb strings.Builder
			printTree(&sb, res.Scenes)
			fmt.Fprintf(&sb, "\n%s\n", res.Stats)
			if missing := res.Sources.Missing(); len(missing) > 0 {
				fmt.Fprintf(&sb, "missing includes: %s\n", strings.Join(missing, ", "))
			}
			return writeOutput(a.stdout, out, []byte(sb.String()))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structure JSON instead of the tree")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "reuse snippet ids from the latest stored snapshot")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "store the result in the project index")
	return cmd
}

// storeBuild reconciles snippet ids against the latest snapshot if asked, then stores the build as
// a new snapshot, refreshes the beat search index and prunes old snapshots.
func (a *app) storeBuild(ctx context.Context, start string, res *build.Result, reconcile bool) error {
	dir, root, err := projectOf(start)
	if err != nil {
		return err
	}
	db, err := a.openIndex(ctx, dir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if reconcile {
		prior, err := storage.PriorSnippets(ctx, db, root)
		if err != nil {
			return err
		}
		changed := dink.ReconcileSnippetIDs(res.Scenes, prior, a.cfg.Parser.MinOverlap)
		a.log.Info("snippet ids reconciled", slog.String("root", root), slog.Int("prior", len(prior)), slog.Int("changed", changed))
	}
	if _, err := storage.SaveStructureSnapshot(ctx, db, root, res.Scenes, time.Now()); err != nil {
		return err
	}
	if _, err := storage.IndexBeats(ctx, db, root, res.Scenes); err != nil {
		return err
	}
	if _, err := storage.PruneStructureSnapshots(ctx, db, root, a.cfg.Storage.KeepSnapshots); err != nil {
		return err
	}
	return storage.SetMeta(ctx, db, "last_build:"+root, time.Now().UTC().Format(time.RFC3339))
}

func printTree(w io.Writer, scenes []dink.Scene) {
	for _, sc := range scenes {
		fmt.Fprintln(w, sc)
		for _, bl := range sc.Blocks {
			fmt.Fprintf(w, "  %s\n", bl)
			for _, sn := range bl.Snippets {
				fmt.Fprintf(w, "    %s\n", sn)
				for _, bt := range sn.Beats {
					fmt.Fprintf(w, "      %s\n", bt)
				}
			}
		}
	}
}

func (a *app) minimalCmd() *cobra.Command {
	var actionText bool
	var out string
	cmd := &cobra.Command{
		Use:   "minimal <file.ink>",
		Short: "Write the minimal line list (one object per beat)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.buildFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := dinkjson.EncodeMinimal(res.Scenes, actionText)
			if err != nil {
				return err
			}
			return writeOutput(a.stdout, out, data)
		},
	}
	cmd.Flags().BoolVar(&actionText, "action-text", false, "include the text of action beats")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func (a *app) pdfCmd() *cobra.Command {
	var out, title, pageSize string
	var ids, tags, comments bool
	cmd := &cobra.Command{
		Use:   "pdf <file.ink>",
		Short: "Render a readable script PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.buildFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if title == "" {
				_, title, _ = projectOf(args[0])
			}
			opt := export.PDFOptions{PageSize: pageSize, ShowLineIDs: ids, ShowTags: tags, ShowComments: comments}
			if err := export.WriteScriptPDF(res.Scenes, title, out, opt); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "wrote %s (%s)\n", out, res.Stats)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PDF path")
	cmd.Flags().StringVar(&title, "title", "", "document title (default: file name)")
	cmd.Flags().StringVar(&pageSize, "page-size", "A4", "A4 or Letter")
	cmd.Flags().BoolVar(&ids, "ids", false, "print line ids")
	cmd.Flags().BoolVar(&tags, "tags", false, "print tags")
	cmd.Flags().BoolVar(&comments, "comments", false, "print block, brace and beat comments")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
