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
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/meshseeks/meshseeks/pkg/config"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// SchemaCmd generates a JSON Schema for the config file or the task data
// model, for editor autocompletion and validation tooling. Output goes to
// stdout.
type SchemaCmd struct {
	Target  string `help:"Schema target: config or task." enum:"config,task" default:"config"`
	Compact bool   `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var schema *jsonschema.Schema
	switch c.Target {
	case "task":
		schema = reflector.Reflect(&meshtask.Snapshot{})
		schema.ID = "https://meshseeks.dev/schemas/task.json"
		schema.Title = "Meshseeks HierarchicalTask Schema"
		schema.Description = "Schema for a single hierarchical task as persisted in a checkpoint's task tree"
	default:
		schema = reflector.Reflect(&config.Config{})
		schema.ID = "https://meshseeks.dev/schemas/config.json"
		schema.Title = "Meshseeks Configuration Schema"
		schema.Description = "Complete configuration schema for the meshseeks orchestration engine"
		schema.Examples = []interface{}{
			map[string]interface{}{
				"checkpoint_dir": "~/.meshseeks/sessions",
				"session": map[string]interface{}{
					"max_concurrent_agents": 100,
					"max_task_depth":        5,
				},
				"orchestrator": map[string]interface{}{
					"iteration_cap": 1000,
					"executor": map[string]interface{}{
						"command": "claude",
					},
				},
			},
		}
	}
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
