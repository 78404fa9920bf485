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

package swarmsession

import (
	"time"

	"github.com/meshseeks/meshseeks/pkg/checkpoint"
	"github.com/meshseeks/meshseeks/pkg/judge"
	"github.com/meshseeks/meshseeks/pkg/planner"
	"github.com/meshseeks/meshseeks/pkg/pool"
)

// Config is the snapshot embedded on every session: every sub-component's
// bounds, captured at session-creation time so a later global config change
// cannot retroactively alter a running session's behavior.
type Config struct {
	MaxConcurrentAgents int   `yaml:"max_concurrent_agents,omitempty"`
	MaxTaskDepth        int   `yaml:"max_task_depth,omitempty"`
	AgentTimeoutMs      int64 `yaml:"agent_timeout_ms,omitempty"`
	SessionTimeoutMs    int64 `yaml:"session_timeout_ms,omitempty"`

	Pool       pool.Config       `yaml:"pool,omitempty"`
	Planner    planner.Config    `yaml:"planner,omitempty"`
	Judge      judge.Config      `yaml:"judge,omitempty"`
	Checkpoint checkpoint.Config `yaml:"checkpoint,omitempty"`
}

// SetDefaults fills unset fields with the spec's documented defaults and
// defaults every embedded sub-config.
func (c *Config) SetDefaults() {
	if c.MaxConcurrentAgents == 0 {
		c.MaxConcurrentAgents = 100
	}
	if c.MaxTaskDepth == 0 {
		c.MaxTaskDepth = 5
	}
	if c.AgentTimeoutMs == 0 {
		c.AgentTimeoutMs = 3_600_000
	}
	if c.SessionTimeoutMs == 0 {
		c.SessionTimeoutMs = 604_800_000
	}
	c.Pool.SetDefaults()
	c.Planner.SetDefaults()
	c.Judge.SetDefaults()
	c.Checkpoint.SetDefaults()
}

func (c Config) agentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutMs) * time.Millisecond
}

func (c Config) sessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMs) * time.Millisecond
}

func (c Config) checkpointInterval() time.Duration {
	return c.Checkpoint.Interval()
}
