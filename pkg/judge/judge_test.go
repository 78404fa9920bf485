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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

func TestVerify_DisabledJudgeAutoPasses(t *testing.T) {
	j := New(Config{Enabled: false})
	task := meshtask.NewTask("do something", meshtask.RoleImplementation, 0, "")
	v := j.Verify(task, TaskResult{}, nil)

	require.True(t, v.Pass)
	require.Equal(t, 1.0, v.OverallScore)
	require.Equal(t, 1.0, v.Confidence)
	require.Empty(t, v.Criteria)
}

func TestVerify_StrongResultPassesImplementation(t *testing.T) {
	j := New(Config{Enabled: true})
	task := meshtask.NewTask("implement the login validation flow", meshtask.RoleImplementation, 0, "")
	result := TaskResult{
		Success: true,
		Output: strings.Repeat("implement validation login flow because this ensures correctness. ", 5) +
			"```go\nfunc Login() {}\n```\nNo concerns found; inputs are sanitized and validated.",
		Summary:         "implemented login validation",
		Artifacts:       []string{"login.go"},
		TestsRun:        4,
		TestsPassed:     4,
		ExecutionTimeMs: 500,
	}

	v := j.Verify(task, result, nil)
	require.True(t, v.Pass, "expected pass, got score %.2f criteria %+v", v.OverallScore, v.Criteria)
	require.NotEmpty(t, v.Criteria)
	require.Empty(t, v.ReworkPrompt)
}

func TestVerify_FailingResultGeneratesReworkPrompt(t *testing.T) {
	j := New(Config{Enabled: true, AutoReworkOnFailure: true})
	task := meshtask.NewTask("implement the login validation flow", meshtask.RoleImplementation, 0, "")
	result := TaskResult{Success: false, Output: "error: undefined behavior, task failed"}

	v := j.Verify(task, result, nil)
	require.False(t, v.Pass)
	require.NotEmpty(t, v.ReworkPrompt)
	require.Contains(t, v.ReworkPrompt, "[TASK REWORK]")
	require.Contains(t, v.ReworkPrompt, task.Prompt())
}

func TestVerify_NoReworkPromptWithoutAutoRework(t *testing.T) {
	j := New(Config{Enabled: true, AutoReworkOnFailure: false})
	task := meshtask.NewTask("implement something", meshtask.RoleImplementation, 0, "")
	v := j.Verify(task, TaskResult{Success: false}, nil)

	require.False(t, v.Pass)
	require.Empty(t, v.ReworkPrompt)
}

func TestVerify_CustomCriteriaOverridesRoleTable(t *testing.T) {
	j := New(Config{Enabled: true})
	task := meshtask.NewTask("write docs", meshtask.RoleImplementation, 0, "")
	custom := map[Criterion]CriterionConfig{
		CriterionPerformance: {Weight: 1, Threshold: 0.1, Enabled: false},
	}

	v := j.Verify(task, TaskResult{Success: true, ExecutionTimeMs: 200}, custom)
	require.Len(t, v.Criteria, 1)
	require.Equal(t, CriterionPerformance, v.Criteria[0].Criterion)
}

func TestVerify_MissingCriterionConfigDefaultsToEqualWeightPoint7(t *testing.T) {
	j := New(Config{Enabled: true})
	task := meshtask.NewTask("analyze the system", meshtask.RoleAnalysis, 0, "")
	v := j.Verify(task, TaskResult{Success: true}, nil)

	for _, c := range v.Criteria {
		require.Equal(t, 1.0, c.Weight)
		require.Equal(t, 0.7, c.Threshold)
	}
}

func TestHasExceededRetries(t *testing.T) {
	j := New(Config{Enabled: true, MaxRetries: 2})
	task := meshtask.NewTask("x", meshtask.RoleImplementation, 0, "")

	require.False(t, j.HasExceededRetries(task.ID()))
	j.Verify(task, TaskResult{Success: false}, nil)
	require.False(t, j.HasExceededRetries(task.ID()))
	j.Verify(task, TaskResult{Success: false}, nil)
	require.True(t, j.HasExceededRetries(task.ID()))
}

func TestVerify_RequiresHumanApprovalBelowThreshold(t *testing.T) {
	j := New(Config{Enabled: true, RequireHumanApprovalThreshold: 0.99})
	task := meshtask.NewTask("implement x", meshtask.RoleImplementation, 0, "")
	v := j.Verify(task, TaskResult{Success: true}, nil)
	require.True(t, v.RequiresHumanApproval)
}

func TestAggregate_FailsWhenHighWeightCriterionFails(t *testing.T) {
	scores := []CriterionScore{
		{Criterion: CriterionCompleteness, Weight: 0.5, Score: 1.0, Threshold: 0.5, Passed: true},
		{Criterion: CriterionSecurity, Weight: 0.5, Score: 0.1, Threshold: 0.5, Passed: false},
	}
	overall, pass := aggregate(scores, 0.5)
	require.GreaterOrEqual(t, overall, 0.5)
	require.False(t, pass, "a failing criterion with weight >= 0.3 must veto the pass even if overall is above threshold")
}

func TestAggregate_PassesWhenOnlyLowWeightCriterionFails(t *testing.T) {
	scores := []CriterionScore{
		{Criterion: CriterionCompleteness, Weight: 0.9, Score: 0.9, Threshold: 0.5, Passed: true},
		{Criterion: CriterionPerformance, Weight: 0.1, Score: 0.1, Threshold: 0.5, Passed: false},
	}
	overall, pass := aggregate(scores, 0.5)
	require.True(t, pass)
	require.Greater(t, overall, 0.5)
}

func TestConfidence_HigherWithMoreCriteriaAndEvidence(t *testing.T) {
	few := []CriterionScore{
		{Score: 0.8, Evidence: []string{"a"}},
	}
	many := []CriterionScore{
		{Score: 0.8, Evidence: []string{"a", "b", "c"}},
		{Score: 0.8, Evidence: []string{"a", "b", "c"}},
		{Score: 0.8, Evidence: []string{"a", "b", "c"}},
		{Score: 0.8, Evidence: []string{"a", "b", "c"}},
	}
	require.Less(t, confidence(few), confidence(many))
}

func TestScoreCriterion_ClampedToRange(t *testing.T) {
	r := TaskResult{Success: true, Output: strings.Repeat("sql injection xss csrf hardcoded password eval( exec( dangerouslysetinnerhtml ", 3)}
	score, _ := scoreCriterion(CriterionSecurity, "prompt", r)
	require.GreaterOrEqual(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)
}

func TestSelectCriteria_RoleTable(t *testing.T) {
	j := New(Config{Enabled: true})
	docTask := meshtask.NewTask("document the api", meshtask.RoleDocumentation, 0, "")
	crits, _ := j.selectCriteria(docTask, nil)
	require.ElementsMatch(t, []Criterion{CriterionCompleteness, CriterionDocumentation}, crits)
}
