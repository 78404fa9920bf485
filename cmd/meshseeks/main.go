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

// Command meshseeks is the CLI front end for the swarm orchestration engine.
// It holds no business logic — every subcommand is a thin call into the
// meshseeks package.
//
// Usage:
//
//	meshseeks solve "fix the flaky upload test" --work-folder ./work
//	meshseeks analyze "add OAuth login" --config meshseeks.yaml
//	meshseeks status <session-id>
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/meshseeks/meshseeks/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Analyze AnalyzeCmd `cmd:"" help:"Decompose a prompt into a task plan without executing it."`
	Execute ExecuteCmd `cmd:"" help:"Execute an already-planned task list to completion."`
	Solve   SolveCmd   `cmd:"" help:"Decompose and execute a prompt end to end."`
	Status  StatusCmd  `cmd:"" help:"Show a session's current status."`
	Schema  SchemaCmd  `cmd:"" help:"Generate JSON Schema for the config file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("meshseeks version %s\n", version)
	return nil
}

// loadConfig loads cli.Config if set, or returns a defaulted, empty config
// otherwise — analyze/solve/execute/status all work with no config file
// present, matching the engine's own nil-cfg default in meshseeks.New.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.SetDefaults()
		return cfg, nil
	}
	_ = config.LoadEnvFiles()
	cfg, loader, err := config.LoadConfigFile(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	defer loader.Close()
	return cfg, nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("meshseeks"),
		kong.Description("Meshseeks - a swarm of coding sub-agents orchestrated through a hierarchical planner"),
		kong.UsageOnError(),
	)

	_, _, _, cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
