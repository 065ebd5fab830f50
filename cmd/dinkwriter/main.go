/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command dinkwriter parses Dink scripts, exports them and drives the external Dink compiler.
package main

import (
	"fmt"
	"io"
	"os"

	"dinkwriter/internal/crash"
)

func main() {
	info := crash.Info{Command: "dinkwriter", Args: os.Args[1:]}
	defer crash.Recover(&info)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, &info))
}

// run executes the CLI and returns the process exit code: 0 on success, 1 on failure.
// Panics are left to crash.Recover in main, which exits with 2.
func run(args []string, stdout, stderr io.Writer, info *crash.Info) int {
	a := &app{stdout: stdout, stderr: stderr, crash: info}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
