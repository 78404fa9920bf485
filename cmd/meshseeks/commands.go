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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/meshseeks/meshseeks"
	"github.com/meshseeks/meshseeks/pkg/planner"
)

// AnalyzeCmd decomposes a prompt into a task plan without executing it.
type AnalyzeCmd struct {
	Prompt     string `arg:"" help:"The problem statement to decompose."`
	WorkFolder string `name:"work-folder" help:"Working directory recorded on the synthetic root task." default:"."`
}

func (c *AnalyzeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := meshseeks.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(ctx)

	specs, err := engine.AnalyzeProblem(c.Prompt, c.WorkFolder)
	if err != nil {
		return err
	}
	return printJSON(specs)
}

// ExecuteCmd runs an already-planned task list (as printed by "analyze" or
// hand-written) to completion.
type ExecuteCmd struct {
	TasksFile     string `name:"tasks-file" help:"Path to a JSON file containing an array of task specs." required:""`
	MaxConcurrent int    `name:"max-concurrent" help:"Override the session's default concurrency bound."`
}

func (c *ExecuteCmd) Run(cli *CLI) error {
	data, err := os.ReadFile(c.TasksFile)
	if err != nil {
		return fmt.Errorf("failed to read tasks file: %w", err)
	}
	var tasks []meshseeks.TaskSpec
	if err := json.Unmarshal(data, &tasks); err != nil {
		return fmt.Errorf("failed to parse tasks file: %w", err)
	}

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := meshseeks.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(ctx)

	outcomes, err := engine.ExecuteTasks(ctx, tasks, c.MaxConcurrent)
	if err != nil {
		return err
	}
	return printJSON(outcomes)
}

// SolveCmd decomposes and executes a prompt end to end.
type SolveCmd struct {
	Prompt        string `arg:"" help:"The problem statement to solve."`
	WorkFolder    string `name:"work-folder" help:"Base working directory for dispatched tasks." default:"./work"`
	Approach      string `help:"Decomposition strategy override (sequential, parallel, hybrid, phased)."`
	ReturnSummary bool   `name:"return-summary" help:"Return a condensed final artifact instead of the full concatenation."`
}

func (c *SolveCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := meshseeks.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(ctx)

	outcome, err := engine.SolveProblem(ctx, c.Prompt, c.WorkFolder, meshseeks.SolveOptions{
		Approach:      planner.Strategy(c.Approach),
		ReturnSummary: c.ReturnSummary,
	})
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

// StatusCmd shows a session's current status.
type StatusCmd struct {
	SessionID string `arg:"" optional:"" help:"Session id to report on (defaults to the most recently started session)."`
}

func (c *StatusCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := meshseeks.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(ctx)

	report, err := engine.Status(c.SessionID)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
