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

package orchestrator

import (
	"time"

	"github.com/meshseeks/meshseeks/pkg/executor"
)

// Config governs one orchestrator's control loop.
type Config struct {
	// Executor configures how each dispatched task's subprocess is invoked.
	Executor executor.Config `yaml:"executor,omitempty"`

	// BaseWorkDir is the parent directory under which every task gets its own
	// <BaseWorkDir>/<sessionId>/<taskId> working directory.
	BaseWorkDir string `yaml:"base_work_dir,omitempty"`

	// IterationCap bounds how many control-loop iterations Run will take
	// before giving up and failing the session — a backstop against a planner
	// or dependency bug that would otherwise spin forever.
	IterationCap int `yaml:"iteration_cap,omitempty"`

	// PollIntervalMs is how long Run sleeps between iterations when nothing
	// is currently dispatchable (tasks in flight, or the session is paused).
	PollIntervalMs int64 `yaml:"poll_interval_ms,omitempty"`
}

// SetDefaults fills unset fields with the documented defaults.
func (c *Config) SetDefaults() {
	c.Executor.SetDefaults()
	if c.BaseWorkDir == "" {
		c.BaseWorkDir = "./work"
	}
	if c.IterationCap == 0 {
		c.IterationCap = 1000
	}
	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = 500
	}
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
