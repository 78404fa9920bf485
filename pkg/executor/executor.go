// SPDX-License-Identifier: AGPL-3.0
// Copyright 2026 The Meshseeks Authors
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package executor invokes the external "code assistant" collaborator: one
// child process per task, scoped to a working directory, reaped on every
// exit path (success, timeout, cancellation, crash). The collaborator's own
// flags and behavior beyond the two mandated ones are opaque to this package.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meshseeks/meshseeks/pkg/judge"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// Executor spawns the external code assistant subprocess for each task.
type Executor struct {
	cfg    Config
	tokens *tokenCounter
}

// New creates an Executor.
func New(cfg Config) *Executor {
	cfg.SetDefaults()
	return &Executor{cfg: cfg, tokens: newTokenCounter()}
}

// Run invokes the code assistant against task in workDir and waits for it to
// exit, a context cancellation, or timeout (the caller's agentTimeoutMs; a
// non-positive value falls back to the configured default). depContext holds
// the upstream dependency outputs the orchestrator gathered from the context
// store; when non-empty it is rendered and appended to the task's prompt so
// the subprocess — which only accepts a single prompt string — still sees
// what its dependencies produced. Run never returns a Go error: every
// failure mode — a non-zero exit, a timeout, a launch failure — is folded
// into the returned TaskResult as the spec requires, so the orchestrator can
// treat every outcome uniformly.
func (e *Executor) Run(ctx context.Context, task *meshtask.Task, workDir string, timeout time.Duration, depContext map[string]any) judge.TaskResult {
	if timeout <= 0 {
		timeout = e.cfg.defaultTimeout()
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := e.renderPrompt(task.Prompt(), depContext)
	args := append([]string{"--dangerously-skip-permissions", "-p", prompt}, e.cfg.ExtraArgs...)
	cmd := exec.CommandContext(runCtx, e.cfg.Command, args...)
	cmd.Dir = workDir
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return judge.TaskResult{Success: false, Error: fmt.Sprintf("executor: stdout pipe: %v", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return judge.TaskResult{Success: false, Error: fmt.Sprintf("executor: stderr pipe: %v", err)}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return judge.TaskResult{Success: false, Error: fmt.Sprintf("executor: start: %v", err)}
	}

	var outBuf, errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(stdout, &outBuf, &wg)
	go drain(stderr, &errBuf, &wg)
	wg.Wait()

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return judge.TaskResult{
			Success:         false,
			Output:          outBuf.String(),
			Error:           fmt.Sprintf("executor: task timed out after %s", timeout),
			ExecutionTimeMs: elapsed.Milliseconds(),
		}
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return judge.TaskResult{
				Success:         false,
				Error:           fmt.Sprintf("executor: %v", waitErr),
				ExecutionTimeMs: elapsed.Milliseconds(),
			}
		}
	}

	if exitCode != 0 {
		return judge.TaskResult{
			Success:         false,
			Output:          outBuf.String(),
			Error:           fmt.Sprintf("executor: exit code %d: %s", exitCode, strings.TrimSpace(errBuf.String())),
			ExecutionTimeMs: elapsed.Milliseconds(),
		}
	}

	return judge.TaskResult{
		Success:         true,
		Output:          outBuf.String(),
		ExecutionTimeMs: elapsed.Milliseconds(),
	}
}

// renderPrompt appends a deterministic "Context from dependencies" block to
// prompt when depContext is non-empty; keys are sorted so the rendered
// prompt — and therefore the subprocess invocation — is reproducible across
// runs with the same inputs. Entries are walked in sorted key order and any
// entry that does not fit the budget left by cfg.MaxContextTokens minus the
// prompt's own tokens is omitted (the first entry is always kept when that
// budget is <= 0), so a task with many dependencies never blows the
// subprocess's effective context window.
func (e *Executor) renderPrompt(prompt string, depContext map[string]any) string {
	if len(depContext) == 0 {
		return prompt
	}
	keys := make([]string, 0, len(depContext))
	for k := range depContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	budget := e.cfg.MaxContextTokens - e.tokens.count(prompt)
	lines := make([]string, 0, len(keys))
	dropped := 0
	used := 0
	for _, k := range keys {
		line := fmt.Sprintf("- %s: %v\n", k, depContext[k])
		if n := e.tokens.count(line); used+n <= budget || budget <= 0 && len(lines) == 0 {
			lines = append(lines, line)
			used += n
		} else {
			dropped++
		}
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nContext from dependencies:\n")
	for _, line := range lines {
		sb.WriteString(line)
	}
	if dropped > 0 {
		fmt.Fprintf(&sb, "(%d additional dependency result(s) omitted to fit the context budget)\n", dropped)
	}
	return sb.String()
}

// drain copies every line from r into dst; used identically for stdout and
// stderr so both pipes are fully reaped before cmd.Wait() is called.
func drain(r io.Reader, dst *strings.Builder, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		dst.WriteString(scanner.Text())
		dst.WriteByte('\n')
	}
}
