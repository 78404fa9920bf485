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

// Package config loads and validates the orchestration engine's
// configuration: session-wide bounds, pool sizing/scaling, the planner's
// decomposition thresholds, the judge's pass criteria, checkpoint cadence,
// and the executor's subprocess invocation. Meshseeks is config-first in the
// same sense the teacher's runtime is: one YAML document, loaded once at
// startup and optionally hot-reloaded, drives every component's bounds.
//
// Example config:
//
//	checkpoint_dir: ~/.meshseeks/sessions
//
//	session:
//	  max_concurrent_agents: 100
//	  max_task_depth: 5
//	  pool:
//	    min_agents: 2
//	    max_agents: 50
//	  judge:
//	    enabled: true
//	    pass_threshold: 0.8
//
//	orchestrator:
//	  iteration_cap: 1000
//	  executor:
//	    command: claude
package config

import (
	"fmt"
	"strings"

	"github.com/meshseeks/meshseeks/pkg/observability"
	"github.com/meshseeks/meshseeks/pkg/orchestrator"
	"github.com/meshseeks/meshseeks/pkg/swarmsession"
)

// Config is the root configuration structure.
type Config struct {
	// CheckpointDir is the base directory under which every session gets its
	// own checkpoint subdirectory (<CheckpointDir>/<sessionId>/). Passed
	// straight to swarmsession.NewManager.
	CheckpointDir string `yaml:"checkpoint_dir,omitempty"`

	// Session governs per-session bounds: concurrency, task depth, pool
	// sizing/scaling, planner thresholds, judge criteria, checkpoint
	// cadence. Captured once per session at creation time.
	Session swarmsession.Config `yaml:"session,omitempty"`

	// Orchestrator governs the control loop itself: iteration cap, poll
	// interval, base working directory for task subprocesses, and the
	// executor's subprocess-invocation settings.
	Orchestrator orchestrator.Config `yaml:"orchestrator,omitempty"`

	// Logger configures logging behavior.
	Logger LoggerConfig `yaml:"logger,omitempty"`

	// Observability configures OpenTelemetry tracing and Prometheus metrics
	// for the pool, task tree, judge, checkpoint store, and sessions.
	Observability observability.Config `yaml:"observability,omitempty"`
}

// SetDefaults applies default values to the config and every embedded
// sub-config.
func (c *Config) SetDefaults() {
	if c.CheckpointDir == "" {
		c.CheckpointDir = "~/.meshseeks/sessions"
	}
	c.Session.SetDefaults()
	c.Orchestrator.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.CheckpointDir == "" {
		errs = append(errs, "checkpoint_dir must not be empty")
	}
	if err := c.Session.Pool.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Logger.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logger: %v", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
