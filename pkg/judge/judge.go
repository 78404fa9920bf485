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

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// Judge verifies completed tasks against rule-based criteria and, on
// rejection, synthesizes the prompt used to rework them. It also tracks
// per-task verdict history so the orchestrator can tell when a task has
// exhausted its retries.
type Judge struct {
	cfg Config

	mu      sync.Mutex
	history map[string][]Verdict
}

// New constructs a Judge. cfg is defaulted and is not mutated afterward.
func New(cfg Config) *Judge {
	cfg.SetDefaults()
	return &Judge{cfg: cfg, history: make(map[string][]Verdict)}
}

// Verify scores result against task's selected criteria and records the
// verdict in this task's history. customCriteria, when non-empty, replaces
// the role-based criteria table and is treated as forced-enabled.
func (j *Judge) Verify(task *meshtask.Task, result TaskResult, customCriteria map[Criterion]CriterionConfig) Verdict {
	if !j.cfg.Enabled {
		v := Verdict{
			TaskID:       task.ID(),
			Pass:         true,
			OverallScore: 1,
			Confidence:   1,
			GeneratedAt:  time.Now(),
		}
		j.record(v)
		return v
	}

	criteria, configs := j.selectCriteria(task, customCriteria)

	scores := make([]CriterionScore, 0, len(criteria))
	for _, crit := range criteria {
		cc := configs[crit]
		raw, evidence := scoreCriterion(crit, task.Prompt(), result)
		scores = append(scores, CriterionScore{
			Criterion: crit,
			Weight:    cc.Weight,
			Score:     raw,
			Threshold: cc.Threshold,
			Passed:    raw >= cc.Threshold,
			Evidence:  evidence,
		})
	}

	overall, pass := aggregate(scores, j.cfg.PassThreshold)
	conf := confidence(scores)

	v := Verdict{
		TaskID:                task.ID(),
		Pass:                  pass,
		OverallScore:          overall,
		Confidence:            conf,
		Criteria:              scores,
		RequiresHumanApproval: conf < j.cfg.RequireHumanApprovalThreshold,
		GeneratedAt:           time.Now(),
	}

	if !pass && j.cfg.AutoReworkOnFailure {
		v.ReworkPrompt = reworkPrompt(task.Prompt(), v)
	}

	j.record(v)
	return v
}

// selectCriteria resolves the criteria list and their configs for one
// verification: custom criteria (forced enabled) if supplied, else the
// role-based table with defaultCriterionConfig filling any config gap.
func (j *Judge) selectCriteria(task *meshtask.Task, customCriteria map[Criterion]CriterionConfig) ([]Criterion, map[Criterion]CriterionConfig) {
	if len(customCriteria) > 0 {
		out := make([]Criterion, 0, len(customCriteria))
		configs := make(map[Criterion]CriterionConfig, len(customCriteria))
		for crit, cc := range customCriteria {
			cc.Enabled = true
			out = append(out, crit)
			configs[crit] = cc
		}
		return out, configs
	}

	roleCrits := roleCriteria(string(task.Role()))
	configs := make(map[Criterion]CriterionConfig, len(roleCrits))
	out := make([]Criterion, 0, len(roleCrits))
	for _, crit := range roleCrits {
		cc := j.cfg.criterionConfig(crit)
		if !cc.Enabled {
			continue
		}
		configs[crit] = cc
		out = append(out, crit)
	}
	return out, configs
}

// record appends v to this task's verdict history.
func (j *Judge) record(v Verdict) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history[v.TaskID] = append(j.history[v.TaskID], v)
}

// History returns a copy of the recorded verdicts for taskID, oldest first.
func (j *Judge) History(taskID string) []Verdict {
	j.mu.Lock()
	defer j.mu.Unlock()
	h := j.history[taskID]
	out := make([]Verdict, len(h))
	copy(out, h)
	return out
}

// HasExceededRetries reports whether taskID's verdict history contains at
// least cfg.MaxRetries failures.
func (j *Judge) HasExceededRetries(taskID string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	failures := 0
	for _, v := range j.history[taskID] {
		if !v.Pass {
			failures++
		}
	}
	return failures >= j.cfg.MaxRetries
}

// aggregate computes the weighted-mean overall score and the pass rule:
// overall ≥ passThreshold AND no failing criterion has weight ≥ 0.3.
func aggregate(scores []CriterionScore, passThreshold float64) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	var weightedSum, weightSum float64
	failingHighWeight := false
	for _, s := range scores {
		weightedSum += s.Score * s.Weight
		weightSum += s.Weight
		if !s.Passed && s.Weight >= 0.3 {
			failingHighWeight = true
		}
	}
	if weightSum == 0 {
		return 0, false
	}
	overall := weightedSum / weightSum
	return overall, overall >= passThreshold && !failingHighWeight
}

// confidence = 0.3·min(1, numCriteria/4) + 0.4·(1 − variance of scores)
// + 0.3·min(1, evidenceCount/(3·numCriteria)).
func confidence(scores []CriterionScore) float64 {
	n := len(scores)
	if n == 0 {
		return 0
	}

	var mean float64
	for _, s := range scores {
		mean += s.Score
	}
	mean /= float64(n)

	var variance float64
	for _, s := range scores {
		d := s.Score - mean
		variance += d * d
	}
	variance /= float64(n)

	evidenceCount := 0
	for _, s := range scores {
		evidenceCount += len(s.Evidence)
	}

	c := 0.3*math.Min(1, float64(n)/4) +
		0.4*(1-variance) +
		0.3*math.Min(1, float64(evidenceCount)/(3*float64(n)))
	return clamp01(c)
}

// reworkPrompt concatenates the original prompt, a bulleted list of failed
// criteria plus their evidence, and a focus line naming the criterion
// furthest below its threshold — the feedback an executor needs to retry the task.
func reworkPrompt(originalPrompt string, v Verdict) string {
	failed := v.failedCriteria()
	if len(failed) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("[TASK REWORK]\n\n")
	b.WriteString("You are reworking a task that did not pass verification.\n\n")
	b.WriteString("Original Task:\n")
	b.WriteString(originalPrompt)
	b.WriteString("\n\nUnmet criteria:\n")

	worst := failed[0]
	for _, c := range failed {
		b.WriteString(fmt.Sprintf("- %s (score %.2f, needed %.2f)", c.Criterion, c.Score, c.Threshold))
		if len(c.Evidence) > 0 {
			b.WriteString(": " + strings.Join(c.Evidence, "; "))
		}
		b.WriteString("\n")
		if c.Threshold-c.Score > worst.Threshold-worst.Score {
			worst = c
		}
	}

	b.WriteString(fmt.Sprintf("\nFocus: address %s first — it is the furthest from its threshold. ", worst.Criterion))
	b.WriteString("Revise the approach rather than repeating the same output.")
	return b.String()
}
