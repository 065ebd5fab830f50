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
	"errors"
	"fmt"
	"time"

	"dinkwriter/internal/compiler"

	"github.com/spf13/cobra"
)

func (a *app) compileCmd() *cobra.Command {
	var src, dest, project, exe string
	var structure bool
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Run the external Dink compiler",
		Long: `Run the external DinkCompiler executable, either for one source file
(--source, --dest, optionally --structure) or for a project file (--project).
Values not given on the command line come from the compiler section of the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := a.cfg.Compiler
			if exe == "" {
				exe = cc.ExePath
			}
			if dest == "" {
				dest = cc.DestFolder
			}
			if !cmd.Flags().Changed("structure") {
				structure = cc.DinkStructure
			}
			if project == "" && src == "" {
				project = cc.ProjectFile
			}
			r := &compiler.Runner{ExePath: exe, Timeout: cc.Timeout(), Logger: a.log}

			var res *compiler.Result
			var err error
			switch {
			case src != "" && project != "":
				return errors.New("use either --source or --project")
			case project != "":
				res, err = r.CompileProject(cmd.Context(), project)
			case src == "":
				return errors.New("--source or --project is required")
			case dest == "":
				return errors.New("--dest is required with --source")
			default:
				res, err = compileSource(cmd.Context(), r, src, dest, structure)
			}
			if res != nil && res.Output != "" {
				fmt.Fprint(a.stdout, res.Output)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "compiled in %s\n", res.Duration.Round(time.Millisecond))
			return err
		},
	}
	cmd.Flags().StringVar(&src, "source", "", "root .ink file")
	cmd.Flags().StringVar(&dest, "dest", "", "destination folder")
	cmd.Flags().StringVar(&project, "project", "", "project file")
	cmd.Flags().StringVar(&exe, "exe", "", "compiler executable (default: config, next to dinkwriter, then PATH)")
	cmd.Flags().BoolVar(&structure, "structure", false, "also write the structure JSON")
	return cmd
}

func compileSource(ctx context.Context, r *compiler.Runner, src, dest string, structure bool) (*compiler.Result, error) {
	if structure {
		return r.CompileWithStructure(ctx, src, dest)
	}
	return r.CompileMinimal(ctx, src, dest)
}
