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

package checkpoint

import (
	"fmt"
	"time"
)

// Config governs how a session's checkpoint directory is laid out and
// maintained.
type Config struct {
	// Dir is the per-session checkpoint directory, e.g.
	// "~/.meshseeks/sessions/<sessionId>". Resolved (including "~") by the
	// caller before being passed to NewStore.
	Dir string `yaml:"dir,omitempty"`

	// IntervalMs is the auto-checkpoint cadence on active sessions.
	// Default: 300000 (5 minutes).
	IntervalMs int `yaml:"interval_ms,omitempty"`

	// MaxCheckpointsPerSession caps how many checkpoints are retained; the
	// oldest are trimmed after each create. Default: 100.
	MaxCheckpointsPerSession int `yaml:"max_checkpoints_per_session,omitempty"`

	// Compress gzip-compresses checkpoint payloads (".json.gz" suffix).
	// Default: false.
	Compress *bool `yaml:"compress,omitempty"`
}

// SetDefaults fills unset fields with the spec's documented defaults.
func (c *Config) SetDefaults() {
	if c.IntervalMs == 0 {
		c.IntervalMs = 300_000
	}
	if c.MaxCheckpointsPerSession == 0 {
		c.MaxCheckpointsPerSession = 100
	}
	if c.Compress == nil {
		compress := false
		c.Compress = &compress
	}
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("checkpoint: dir must not be empty")
	}
	if c.IntervalMs < 0 {
		return fmt.Errorf("checkpoint: interval_ms must be non-negative")
	}
	if c.MaxCheckpointsPerSession <= 0 {
		return fmt.Errorf("checkpoint: max_checkpoints_per_session must be positive")
	}
	return nil
}

// ShouldCompress reports whether new checkpoints should be gzip-compressed.
func (c *Config) ShouldCompress() bool {
	return c != nil && c.Compress != nil && *c.Compress
}

// Interval returns IntervalMs as a time.Duration.
func (c *Config) Interval() time.Duration {
	if c == nil || c.IntervalMs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}
