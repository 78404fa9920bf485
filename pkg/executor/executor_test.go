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

package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// writeScript creates an executable shell script in dir that ignores every
// argument it's called with (the mandated --dangerously-skip-permissions/-p
// flags included) and runs body.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRun_SuccessCapturesStdout(t *testing.T) {
	e := New(Config{Command: "/bin/echo"})

	task := meshtask.NewTask("say hi", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), time.Second, nil)

	require.True(t, result.Success)
	require.Contains(t, result.Output, "say hi")
	require.Empty(t, result.Error)
}

func TestRun_NonZeroExitProducesErrorPayload(t *testing.T) {
	script := writeScript(t, "echo boom >&2\nexit 3")
	e := New(Config{Command: script})

	task := meshtask.NewTask("fail this", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), time.Second, nil)

	require.False(t, result.Success)
	require.Contains(t, result.Error, "exit code 3")
	require.Contains(t, result.Error, "boom")
}

func TestRun_TimeoutMarksFailure(t *testing.T) {
	script := writeScript(t, "sleep 5")
	e := New(Config{Command: script})

	task := meshtask.NewTask("slow", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), 50*time.Millisecond, nil)

	require.False(t, result.Success)
	require.Contains(t, result.Error, "timed out")
}

func TestRun_LaunchFailureIsFoldedIntoResult(t *testing.T) {
	e := New(Config{Command: "/does/not/exist"})
	task := meshtask.NewTask("nope", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), time.Second, nil)

	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func TestRun_UsesConfiguredDefaultTimeoutWhenNonePassed(t *testing.T) {
	script := writeScript(t, "sleep 5")
	e := New(Config{Command: script, DefaultTimeoutMs: 50})

	task := meshtask.NewTask("slow", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), 0, nil)

	require.False(t, result.Success)
	require.Contains(t, result.Error, "timed out")
}

func TestRun_RendersDependencyContextIntoPrompt(t *testing.T) {
	e := New(Config{Command: "/bin/echo"})

	task := meshtask.NewTask("build the handler", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), time.Second, map[string]any{
		"schema-task": "users table has id, email",
		"api-task":    "POST /users returns 201",
	})

	require.True(t, result.Success)
	require.Contains(t, result.Output, "build the handler")
	require.Contains(t, result.Output, "Context from dependencies:")
	apiIdx := strings.Index(result.Output, "- api-task: POST /users returns 201")
	schemaIdx := strings.Index(result.Output, "- schema-task: users table has id, email")
	require.NotEqual(t, -1, apiIdx)
	require.NotEqual(t, -1, schemaIdx)
	require.Less(t, apiIdx, schemaIdx, "dependency context keys must render in sorted order")
}

func TestRun_DropsDependencyContextExceedingTokenBudget(t *testing.T) {
	e := New(Config{Command: "/bin/echo", MaxContextTokens: 20})

	task := meshtask.NewTask("build the handler", meshtask.RoleImplementation, 0, "")
	result := e.Run(context.Background(), task, t.TempDir(), time.Second, map[string]any{
		"a-task": strings.Repeat("word ", 200),
		"b-task": strings.Repeat("word ", 200),
	})

	require.True(t, result.Success)
	require.Contains(t, result.Output, "omitted to fit the context budget")
}
