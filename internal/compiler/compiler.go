/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compiler runs the external Dink compiler executable. It only passes source paths and
// reports the exit status and captured output; the parsed tree is never handed over.
package compiler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	applog "dinkwriter/internal/log"
)

// ExeBaseName is the file name of the compiler without platform suffix.
const ExeBaseName = "DinkCompiler"

// ErrCompilerNotFound is returned when no compiler executable can be located or launched.
var ErrCompilerNotFound = errors.New("dink compiler not found")

// ExitError reports a compiler run that finished with a non-zero exit code.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("dink compiler exited with code %d", e.Code)
}

// Result is the outcome of one compiler run. Output holds stdout and stderr interleaved.
type Result struct {
	Args     []string
	ExitCode int
	Output   string
	Duration time.Duration
}

// Runner invokes the compiler. An empty ExePath is resolved with FindExecutable on each run.
// Timeout <= 0 means no limit beyond the caller's context.
type Runner struct {
	ExePath string
	Timeout time.Duration
	Dir     string
	Logger  *slog.Logger
}

// execCommandContext is swapped in tests.
var execCommandContext = exec.CommandContext

func exeName() string {
	if runtime.GOOS == "windows" {
		return ExeBaseName + ".exe"
	}
	return ExeBaseName
}

// FindExecutable resolves the compiler: the configured path if set, then the executable next to
// the running binary, then PATH. A configured path that does not exist is not replaced by a fallback.
func FindExecutable(configured string) (string, error) {
	if c := strings.TrimSpace(configured); c != "" {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return filepath.Abs(c)
		}
		return "", fmt.Errorf("%w: %s", ErrCompilerNotFound, c)
	}
	if self, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(self), exeName())
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	if p, err := exec.LookPath(exeName()); err == nil {
		return p, nil
	}
	return "", ErrCompilerNotFound
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return applog.WithComponent("compiler")
}

// CompileMinimal compiles source and writes the minimal line list into destFolder.
func (r *Runner) CompileMinimal(ctx context.Context, source, destFolder string) (*Result, error) {
	return r.run(ctx, "compile_minimal", "--source", source, "--destFolder", destFolder)
}

// CompileWithStructure additionally asks the compiler for the structure JSON.
func (r *Runner) CompileWithStructure(ctx context.Context, source, destFolder string) (*Result, error) {
	return r.run(ctx, "compile_structure", "--source", source, "--destFolder", destFolder, "--dinkStructure")
}

// CompileProject compiles everything a project file describes.
func (r *Runner) CompileProject(ctx context.Context, projectFile string) (*Result, error) {
	return r.run(ctx, "compile_project", "--project", projectFile)
}

func (r *Runner) run(ctx context.Context, op string, args ...string) (*Result, error) {
	l := applog.WithOperation(r.logger(), op)
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			return nil, errors.New("compiler: empty argument")
		}
	}
	exe, err := FindExecutable(r.ExePath)
	if err != nil {
		l.Error("compiler not found", slog.String("configured", r.ExePath))
		return nil, err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := execCommandContext(ctx, exe, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	l.Info("running compiler", slog.String("exe", exe), slog.String("args", strings.Join(args, " ")))
	start := time.Now()
	runErr := cmd.Run()
	res := &Result{Args: args, Output: out.String(), Duration: time.Since(start)}
	logOutput(l, res.Output)

	if runErr != nil {
		if ctx.Err() != nil {
			l.Error("compiler interrupted", slog.Any("err", ctx.Err()), slog.Duration("took", res.Duration))
			return res, fmt.Errorf("compiler: %w", ctx.Err())
		}
		var ee *exec.ExitError
		if errors.As(runErr, &ee) {
			res.ExitCode = ee.ExitCode()
			l.Error("compiler failed", slog.Int("exit", res.ExitCode), slog.Duration("took", res.Duration))
			return res, &ExitError{Code: res.ExitCode, Output: res.Output}
		}
		l.Error("compiler launch failed", slog.Any("err", runErr))
		return res, fmt.Errorf("%w: %v", ErrCompilerNotFound, runErr)
	}
	l.Info("compiler finished", slog.Duration("took", res.Duration))
	return res, nil
}

func logOutput(l *slog.Logger, output string) {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			l.Debug("compiler output", slog.String("line", line))
		}
	}
}
