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

import "strings"

var errorIndicatorWords = []string{"error", "exception", "failed", "undefined", "null reference"}
var explanationWords = []string{"because", "therefore", "this ensures", "this allows"}
var parameterDocMarkers = []string{"@param", "parameters:", "args:"}
var securityConcernWords = []string{
	"sql injection", "xss", "csrf", "hardcoded password",
	"eval(", "exec(", "dangerouslysetinnerhtml",
}
var securityMitigationWords = []string{"sanitize", "validate", "escape"}

// optimizationWords and antiPatternWords aren't enumerated by name in the
// scoring rules beyond "optimization words" / "anti-pattern words" — these
// are the literal lists chosen to stand in for them (see DESIGN.md).
var optimizationWords = []string{"optimize", "optimized", "optimization", "cached", "efficient"}
var antiPatternWords = []string{"n+1", "memory leak"}

func containsAnyFold(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func countOccurringFold(haystack string, needles []string) int {
	lower := strings.ToLower(haystack)
	n := 0
	for _, needle := range needles {
		if strings.Contains(lower, needle) {
			n++
		}
	}
	return n
}

// termCoverage returns the fraction of prompt tokens longer than 4 characters
// that also appear (case-insensitively) in output. Returns 0 when the prompt
// has no such tokens.
func termCoverage(prompt, output string) float64 {
	lowerOutput := strings.ToLower(output)
	fields := strings.Fields(prompt)
	total, hit := 0, 0
	for _, f := range fields {
		word := strings.ToLower(strings.Trim(f, ".,;:!?()[]{}\"'"))
		if len(word) <= 4 {
			continue
		}
		total++
		if strings.Contains(lowerOutput, word) {
			hit++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

// scoreCompleteness: +0.2 output length > 50; +0.1 summary present; +0.1 any
// artifacts; +0.1 × term-coverage of prompt tokens (length > 4).
func scoreCompleteness(prompt string, r TaskResult) (float64, []string) {
	var add float64
	var evidence []string
	if len(r.Output) > 50 {
		add += 0.2
		evidence = append(evidence, "output length > 50")
	}
	if strings.TrimSpace(r.Summary) != "" {
		add += 0.1
		evidence = append(evidence, "summary present")
	}
	if len(r.Artifacts) > 0 {
		add += 0.1
		evidence = append(evidence, "artifacts present")
	}
	cov := termCoverage(prompt, r.Output)
	if cov > 0 {
		add += 0.1 * cov
		evidence = append(evidence, "prompt term coverage")
	}
	return add, evidence
}

// scoreCorrectness: +0.2 no error field; +0.2 × (testsPassed/testsRun) when
// reported; +0.1 if output lacks error-indicator words.
func scoreCorrectness(r TaskResult) (float64, []string) {
	var add float64
	var evidence []string
	if strings.TrimSpace(r.Error) == "" {
		add += 0.2
		evidence = append(evidence, "no error field")
	}
	if r.TestsRun > 0 {
		rate := float64(r.TestsPassed) / float64(r.TestsRun)
		add += 0.2 * rate
		evidence = append(evidence, "test pass rate")
	}
	if !containsAnyFold(r.Output, errorIndicatorWords) {
		add += 0.1
		evidence = append(evidence, "no error-indicator words")
	}
	return add, evidence
}

// scoreQuality: +0.15 well-structured; +0.15 length in [100, 50000]; +0.1 has
// code fence; +0.1 contains explanation words.
func scoreQuality(r TaskResult) (float64, []string) {
	var add float64
	var evidence []string
	if strings.Contains(r.Output, "\n\n") || strings.Contains(r.Output, "#") || strings.Contains(r.Output, "```") {
		add += 0.15
		evidence = append(evidence, "well-structured output")
	}
	if l := len(r.Output); l >= 100 && l <= 50000 {
		add += 0.15
		evidence = append(evidence, "length within expected range")
	}
	if strings.Contains(r.Output, "```") {
		add += 0.1
		evidence = append(evidence, "contains code fence")
	}
	if containsAnyFold(r.Output, explanationWords) {
		add += 0.1
		evidence = append(evidence, "contains explanation language")
	}
	return add, evidence
}

// scoreTesting: +0.2 any tests run; +0.3 all passed (or pass-rate × 0.3);
// +0.1 output mentions test/spec/expect.
func scoreTesting(r TaskResult) (float64, []string) {
	var add float64
	var evidence []string
	if r.TestsRun > 0 {
		add += 0.2
		evidence = append(evidence, "tests were run")
		rate := float64(r.TestsPassed) / float64(r.TestsRun)
		add += 0.3 * rate
		if r.TestsPassed == r.TestsRun {
			evidence = append(evidence, "all tests passed")
		} else {
			evidence = append(evidence, "partial test pass rate")
		}
	}
	if containsAnyFold(r.Output, []string{"test", "spec", "expect"}) {
		add += 0.1
		evidence = append(evidence, "mentions test/spec/expect")
	}
	return add, evidence
}

// scoreDocumentation: +0.15 headers; +0.15 examples; +0.1 length > 200; +0.1
// parameter docs.
func scoreDocumentation(r TaskResult) (float64, []string) {
	var add float64
	var evidence []string
	if strings.Contains(r.Output, "#") {
		add += 0.15
		evidence = append(evidence, "headers present")
	}
	if containsAnyFold(r.Output, []string{"example"}) {
		add += 0.15
		evidence = append(evidence, "examples present")
	}
	if len(r.Output) > 200 {
		add += 0.1
		evidence = append(evidence, "length > 200")
	}
	if containsAnyFold(r.Output, parameterDocMarkers) {
		add += 0.1
		evidence = append(evidence, "parameter docs present")
	}
	return add, evidence
}

// scoreSecurity: base 0.3; −0.1 per detected concern keyword; +0.2 when none;
// +0.1 if any of {sanitize, validate, escape}.
func scoreSecurity(r TaskResult) (float64, []string) {
	add := 0.3
	var evidence []string
	concerns := countOccurringFold(r.Output, securityConcernWords)
	if concerns == 0 {
		add += 0.2
		evidence = append(evidence, "no security concern keywords detected")
	} else {
		add -= 0.1 * float64(concerns)
		evidence = append(evidence, "security concern keywords detected")
	}
	if containsAnyFold(r.Output, securityMitigationWords) {
		add += 0.1
		evidence = append(evidence, "mentions sanitize/validate/escape")
	}
	return add, evidence
}

// scorePerformance: +0.3/+0.2/+0.1 for execution time <1s / <10s / else;
// +0.1 optimization words; +0.1 no anti-pattern words.
func scorePerformance(r TaskResult) (float64, []string) {
	var add float64
	var evidence []string
	switch {
	case r.ExecutionTimeMs < 1000:
		add += 0.3
		evidence = append(evidence, "execution time < 1s")
	case r.ExecutionTimeMs < 10000:
		add += 0.2
		evidence = append(evidence, "execution time < 10s")
	default:
		add += 0.1
	}
	if containsAnyFold(r.Output, optimizationWords) {
		add += 0.1
		evidence = append(evidence, "mentions optimization")
	}
	if !containsAnyFold(r.Output, antiPatternWords) {
		add += 0.1
		evidence = append(evidence, "no anti-pattern words")
	}
	return add, evidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scoreCriterion returns a criterion's clamped total score and its evidence.
// Every criterion shares the +0.5-if-successful base; security's own "base
// 0.3" sits on top of that as its concrete-signal contribution (see
// scoreSecurity) rather than replacing it.
func scoreCriterion(crit Criterion, prompt string, r TaskResult) (float64, []string) {
	var base float64
	if r.Success {
		base = 0.5
	}

	var add float64
	var evidence []string
	switch crit {
	case CriterionCompleteness:
		add, evidence = scoreCompleteness(prompt, r)
	case CriterionCorrectness:
		add, evidence = scoreCorrectness(r)
	case CriterionQuality:
		add, evidence = scoreQuality(r)
	case CriterionTesting:
		add, evidence = scoreTesting(r)
	case CriterionDocumentation:
		add, evidence = scoreDocumentation(r)
	case CriterionSecurity:
		add, evidence = scoreSecurity(r)
	case CriterionPerformance:
		add, evidence = scorePerformance(r)
	}
	return clamp01(base + add), evidence
}
