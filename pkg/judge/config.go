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

package judge

// Config governs judge-wide behavior. Per-criterion overrides in Criteria
// take precedence over the built-in role table; anything the role table
// names but Criteria omits falls back to defaultCriterionConfig.
type Config struct {
	Enabled     bool                       `yaml:"enabled"`
	PassThreshold float64                  `yaml:"pass_threshold,omitempty"`
	MaxRetries  int                        `yaml:"max_retries,omitempty"`
	AutoReworkOnFailure bool               `yaml:"auto_rework_on_failure"`
	// RequireHumanApprovalThreshold: verdicts with confidence below this are
	// flagged for human approval regardless of pass/fail. The spec does not
	// pin a numeric default for this one, so 0.5 was chosen as a reasonable
	// midpoint — see DESIGN.md.
	RequireHumanApprovalThreshold float64 `yaml:"require_human_approval_threshold,omitempty"`
	Criteria    map[Criterion]CriterionConfig `yaml:"criteria,omitempty"`
}

// SetDefaults fills unset fields with the spec's documented defaults.
func (c *Config) SetDefaults() {
	if c.PassThreshold == 0 {
		c.PassThreshold = 0.8
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RequireHumanApprovalThreshold == 0 {
		c.RequireHumanApprovalThreshold = 0.5
	}
}

// criterionConfig resolves the effective weight/threshold/enabled for one
// criterion, preferring an explicit override over defaultCriterionConfig.
func (c Config) criterionConfig(crit Criterion) CriterionConfig {
	if cc, ok := c.Criteria[crit]; ok {
		return cc
	}
	return defaultCriterionConfig
}

// roleCriteria is the literal role → criteria selection table.
func roleCriteria(role string) []Criterion {
	switch role {
	case "analysis":
		return []Criterion{CriterionCompleteness, CriterionCorrectness}
	case "implementation":
		return []Criterion{CriterionCompleteness, CriterionCorrectness, CriterionQuality, CriterionSecurity}
	case "testing":
		return []Criterion{CriterionCompleteness, CriterionCorrectness, CriterionTesting}
	case "documentation":
		return []Criterion{CriterionCompleteness, CriterionDocumentation}
	case "debugging":
		return []Criterion{CriterionCompleteness, CriterionCorrectness}
	case "planner", "monitor":
		return []Criterion{CriterionCompleteness}
	case "judge":
		return []Criterion{CriterionCorrectness}
	case "synthesizer":
		return []Criterion{CriterionCompleteness, CriterionQuality}
	default:
		return []Criterion{CriterionCompleteness, CriterionCorrectness}
	}
}
