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
	"os/signal"
	"syscall"

	"dinkwriter/internal/build"
	"dinkwriter/internal/dinkjson"
	"dinkwriter/internal/watch"

	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	var out string
	var store bool
	cmd := &cobra.Command{
		Use:   "watch <file.ink>",
		Short: "Rebuild whenever the root file or one of its includes changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := a.newBuilder()
			if err != nil {
				return err
			}
			onBuild := func(res *build.Result, err error) {
				if err != nil {
					fmt.Fprintf(a.stdout, "build failed: %v\n", err)
					return
				}
				fmt.Fprintf(a.stdout, "build ok: %s\n", res.Stats)
				if out != "" {
					data, err := dinkjson.Encode(res.Scenes)
					if err == nil {
						err = writeOutput(a.stdout, out, data)
					}
					if err != nil {
						fmt.Fprintf(a.stdout, "write %s failed: %v\n", out, err)
					}
				}
				if store {
					if err := a.storeBuild(ctx, args[0], res, false); err != nil {
						fmt.Fprintf(a.stdout, "index update failed: %v\n", err)
					}
				}
			}
			w, err := watch.New(args[0], b.Build, watch.WithOnBuild(onBuild))
			if err != nil {
				return err
			}
			defer w.Stop()
			if err := w.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "watching for changes, press Ctrl+C to stop")
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the structure JSON here after each successful build")
	cmd.Flags().BoolVar(&store, "snapshot", false, "store each successful build in the project index")
	return cmd
}
