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

// Package judge decides whether a completed task's result is acceptable and,
// on rejection, synthesizes the prompt used to rework it.
//
// Scoring is entirely rule-based over the task and its execution result —
// there is no LLM call in the loop. Every formula below is a literal
// transcription of the verification rules this system was designed against.
package judge

import "time"

// Criterion is one axis a task result is scored against.
type Criterion string

const (
	CriterionCompleteness  Criterion = "completeness"
	CriterionCorrectness   Criterion = "correctness"
	CriterionQuality       Criterion = "quality"
	CriterionTesting       Criterion = "testing"
	CriterionDocumentation Criterion = "documentation"
	CriterionSecurity      Criterion = "security"
	CriterionPerformance   Criterion = "performance"
)

// CriterionConfig tunes one criterion's weight, pass threshold, and whether
// it participates in aggregation at all.
type CriterionConfig struct {
	Weight    float64 `yaml:"weight,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`
	Enabled   bool    `yaml:"enabled"`
}

// defaultCriterionConfig is used for any criterion missing from Config.Criteria:
// equal weight, threshold 0.7.
var defaultCriterionConfig = CriterionConfig{Weight: 1, Threshold: 0.7, Enabled: true}

// TaskResult is the opaque execution payload the judge scores. It mirrors
// what an executor reports back for one task: whether the subprocess
// succeeded, what it produced, and any test signal it surfaced.
type TaskResult struct {
	Success         bool
	Output          string
	Summary         string
	Artifacts       []string
	Error           string
	TestsRun        int
	TestsPassed     int
	ExecutionTimeMs int64
}

// CriterionScore is one criterion's contribution to a Verdict.
type CriterionScore struct {
	Criterion Criterion `json:"criterion"`
	Weight    float64   `json:"weight"`
	Score     float64   `json:"score"`
	Threshold float64   `json:"threshold"`
	Passed    bool      `json:"passed"`
	Evidence  []string  `json:"evidence,omitempty"`
}

// Verdict is the judge's verification result for one task attempt.
type Verdict struct {
	TaskID                string           `json:"task_id"`
	Pass                  bool             `json:"pass"`
	OverallScore          float64          `json:"overall_score"`
	Confidence            float64          `json:"confidence"`
	Criteria              []CriterionScore `json:"criteria"`
	RequiresHumanApproval bool             `json:"requires_human_approval"`
	ReworkPrompt          string           `json:"rework_prompt,omitempty"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// failedCriteria returns the subset of v.Criteria that did not pass.
func (v Verdict) failedCriteria() []CriterionScore {
	var out []CriterionScore
	for _, c := range v.Criteria {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
