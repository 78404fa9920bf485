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

package pool

import (
	"fmt"
	"time"
)

// Config governs pool sizing, scaling, and health-monitoring behavior.
type Config struct {
	MinAgents     int `yaml:"min_agents,omitempty"`
	MaxAgents     int `yaml:"max_agents,omitempty"`
	InitialAgents int `yaml:"initial_agents,omitempty"`

	ScaleUpThreshold     int `yaml:"scale_up_threshold,omitempty"`
	ScaleDownThresholdMs int `yaml:"scale_down_threshold_ms,omitempty"`
	CooldownMs           int `yaml:"cooldown_ms,omitempty"`

	HealthCheckIntervalMs int `yaml:"health_check_interval_ms,omitempty"`
	AgentTimeoutMs        int `yaml:"agent_timeout_ms,omitempty"`

	MaxConsecutiveFailures int `yaml:"max_consecutive_failures,omitempty"`

	DefaultAcquireTimeoutMs int `yaml:"default_acquire_timeout_ms,omitempty"`
}

// SetDefaults fills unset fields with the spec's documented defaults.
func (c *Config) SetDefaults() {
	if c.MinAgents == 0 {
		c.MinAgents = 1
	}
	if c.MaxAgents == 0 {
		c.MaxAgents = 500
	}
	if c.InitialAgents == 0 {
		c.InitialAgents = c.MinAgents
	}
	if c.ScaleUpThreshold == 0 {
		c.ScaleUpThreshold = 10
	}
	if c.ScaleDownThresholdMs == 0 {
		c.ScaleDownThresholdMs = 60_000
	}
	if c.CooldownMs == 0 {
		c.CooldownMs = 5_000
	}
	if c.HealthCheckIntervalMs == 0 {
		c.HealthCheckIntervalMs = 30_000
	}
	if c.AgentTimeoutMs == 0 {
		c.AgentTimeoutMs = 3_600_000
	}
	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = 5
	}
	if c.DefaultAcquireTimeoutMs == 0 {
		c.DefaultAcquireTimeoutMs = c.AgentTimeoutMs
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MinAgents < 0 {
		return fmt.Errorf("pool: min_agents must be non-negative")
	}
	if c.MaxAgents < c.MinAgents {
		return fmt.Errorf("pool: max_agents must be >= min_agents")
	}
	if c.InitialAgents < c.MinAgents || c.InitialAgents > c.MaxAgents {
		return fmt.Errorf("pool: initial_agents must be within [min_agents, max_agents]")
	}
	if c.ScaleUpThreshold <= 0 {
		return fmt.Errorf("pool: scale_up_threshold must be positive")
	}
	if c.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("pool: max_consecutive_failures must be positive")
	}
	return nil
}

func (c Config) Cooldown() time.Duration              { return time.Duration(c.CooldownMs) * time.Millisecond }
func (c Config) ScaleDownThreshold() time.Duration     { return time.Duration(c.ScaleDownThresholdMs) * time.Millisecond }
func (c Config) HealthCheckInterval() time.Duration    { return time.Duration(c.HealthCheckIntervalMs) * time.Millisecond }
func (c Config) AgentTimeout() time.Duration           { return time.Duration(c.AgentTimeoutMs) * time.Millisecond }
func (c Config) DefaultAcquireTimeout() time.Duration  { return time.Duration(c.DefaultAcquireTimeoutMs) * time.Millisecond }
