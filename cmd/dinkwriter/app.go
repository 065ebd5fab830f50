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
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"dinkwriter/internal/build"
	"dinkwriter/internal/config"
	"dinkwriter/internal/crash"
	"dinkwriter/internal/dink"
	applog "dinkwriter/internal/log"
	"dinkwriter/internal/source"
	"dinkwriter/internal/storage"
	"dinkwriter/internal/version"

	"github.com/spf13/cobra"
)

// app carries what every subcommand shares: output streams, flags of the root command and the
// loaded configuration.
type app struct {
	stdout, stderr io.Writer
	crash          *crash.Info

	configPath string
	logLevel   string
	verbose    bool
	seed       uint64

	cfg config.AppConfig
	log *slog.Logger
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dinkwriter",
		Short:         "Parse, check and export Dink dialogue scripts",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, args)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./dinkwriter.yaml or the per-user config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "shorthand for --log-level=debug")
	root.PersistentFlags().Uint64Var(&a.seed, "seed", 0, "seed for generated snippet ids (0 = random)")

	root.AddCommand(a.parseCmd())
	root.AddCommand(a.minimalCmd())
	root.AddCommand(a.pdfCmd())
	root.AddCommand(a.validateCmd())
	root.AddCommand(a.matchCmd())
	root.AddCommand(a.searchCmd())
	root.AddCommand(a.compileCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(a.versionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, path, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	opts := cfg.Logging.LogOptions()
	opts.Writer = a.stderr
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
	a.log.Debug("config loaded", slog.String("path", path), slog.String("command", cmd.Name()))

	if a.crash != nil {
		a.crash.Command = cmd.CommandPath()
		a.crash.Args = args
		if len(args) > 0 {
			a.crash.StartFile = args[0]
		}
	}
	return nil
}

func (a *app) newParser() *dink.Parser {
	if a.seed != 0 {
		return dink.NewParser(dink.WithRand(rand.New(rand.NewPCG(a.seed, a.seed))))
	}
	return dink.NewParser()
}

func (a *app) newBuilder() (*build.Builder, error) {
	order, err := source.ParseIncludeOrder(a.cfg.Parser.IncludeOrder)
	if err != nil {
		return nil, err
	}
	r := source.NewResolver()
	r.Order = order
	return build.New(r, a.newParser(), build.DefaultCacheSize)
}

func (a *app) buildFile(ctx context.Context, path string) (*build.Result, error) {
	b, err := a.newBuilder()
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, path)
}

// indexPath resolves the configured index path; relative paths are taken from projectDir.
func (a *app) indexPath(projectDir string) string {
	p := a.cfg.Storage.IndexPath
	if p == "" {
		return storage.IndexPath(projectDir)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

func (a *app) openIndex(ctx context.Context, projectDir string) (*sql.DB, error) {
	db, recovered, err := storage.OpenOrRecoverIndex(ctx, a.indexPath(projectDir))
	if err != nil {
		return nil, err
	}
	if recovered {
		a.log.Warn("index was damaged and has been recreated", slog.String("project", projectDir))
	}
	return db, nil
}

// projectOf returns the directory and index root key of a start file.
func projectOf(start string) (dir, root string, err error) {
	abs, err := source.Canonical(start)
	if err != nil {
		return "", "", err
	}
	return filepath.Dir(abs), filepath.Base(abs), nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
