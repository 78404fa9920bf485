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

import "time"

// Config configures how the external code assistant subprocess is invoked.
type Config struct {
	// Command is the binary invoked for every task. Defaults to "claude".
	Command string `yaml:"command,omitempty"`

	// ExtraArgs are appended after the mandated flags and the prompt,
	// e.g. model-selection or output-format flags a deployment wants fixed
	// on every invocation.
	ExtraArgs []string `yaml:"extra_args,omitempty"`

	// DefaultTimeoutMs bounds a single task invocation when Run is called
	// with a timeout <= 0. Defaults to 3,600,000 (1h).
	DefaultTimeoutMs int64 `yaml:"default_timeout_ms,omitempty"`

	// MaxContextTokens bounds how much of the rendered dependency-context
	// block is allowed into the prompt, counted together with the prompt
	// itself using the executor's cl100k_base tokenizer. Entries are taken in
	// sorted key order and any entry that does not fit the remaining budget
	// is omitted. Defaults to 4000.
	MaxContextTokens int `yaml:"max_context_tokens,omitempty"`
}

// SetDefaults fills unset fields with the documented defaults.
func (c *Config) SetDefaults() {
	if c.Command == "" {
		c.Command = "claude"
	}
	if c.DefaultTimeoutMs == 0 {
		c.DefaultTimeoutMs = 3_600_000
	}
	if c.MaxContextTokens == 0 {
		c.MaxContextTokens = 4000
	}
}

func (c Config) defaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}
