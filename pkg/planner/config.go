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

package planner

// Config governs planner-wide limits and defaults.
type Config struct {
	MaxDepth                int      `yaml:"max_depth,omitempty"`
	AutoDecomposeThreshold  int      `yaml:"auto_decompose_threshold,omitempty"`
	DefaultStrategy         Strategy `yaml:"default_strategy,omitempty"`
}

// SetDefaults fills unset fields with the spec's documented defaults.
func (c *Config) SetDefaults() {
	if c.MaxDepth == 0 {
		c.MaxDepth = 5
	}
	if c.AutoDecomposeThreshold == 0 {
		c.AutoDecomposeThreshold = 50
	}
	if c.DefaultStrategy == "" {
		c.DefaultStrategy = StrategyHybrid
	}
}
