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

import "github.com/meshseeks/meshseeks/pkg/meshtask"

// synthesizeDependencies wires each spec's DependsOn according to strategy.
// Every subtask additionally depends on parentID regardless of strategy.
func synthesizeDependencies(specs []SubtaskSpec, strategy Strategy, parentID string) {
	switch strategy {
	case StrategySequential:
		for i := range specs {
			if i > 0 {
				specs[i].DependsOn = []string{specs[i-1].ID}
			}
		}
	case StrategyParallel:
		// no cross-subtask dependencies
	case StrategyPhased:
		synthesizePhased(specs)
	default: // hybrid
		synthesizeHybrid(specs)
	}

	for i := range specs {
		specs[i].DependsOn = dedupeAppend(specs[i].DependsOn, parentID)
	}
}

// synthesizeHybrid: implementation depends on all analysis; testing depends
// on all implementation; documentation depends on all implementation ∪ testing.
func synthesizeHybrid(specs []SubtaskSpec) {
	idsByRole := func(role meshtask.Role) []string {
		var ids []string
		for _, s := range specs {
			if s.Role == role {
				ids = append(ids, s.ID)
			}
		}
		return ids
	}

	analysisIDs := idsByRole(meshtask.RoleAnalysis)
	implementationIDs := idsByRole(meshtask.RoleImplementation)
	testingIDs := idsByRole(meshtask.RoleTesting)

	for i := range specs {
		switch specs[i].Role {
		case meshtask.RoleImplementation:
			specs[i].DependsOn = append(specs[i].DependsOn, analysisIDs...)
		case meshtask.RoleTesting:
			specs[i].DependsOn = append(specs[i].DependsOn, implementationIDs...)
		case meshtask.RoleDocumentation:
			specs[i].DependsOn = append(specs[i].DependsOn, implementationIDs...)
			specs[i].DependsOn = append(specs[i].DependsOn, testingIDs...)
		}
	}
}

// phaseOf assigns a role to one of the four synthesis phases.
func phaseOf(role meshtask.Role) int {
	switch role {
	case meshtask.RoleAnalysis, meshtask.RolePlanner:
		return 0
	case meshtask.RoleImplementation, meshtask.RoleDebugging:
		return 1
	case meshtask.RoleTesting:
		return 2
	case meshtask.RoleDocumentation, meshtask.RoleSynthesizer:
		return 3
	default:
		return 1
	}
}

// synthesizePhased: a subtask depends on every subtask in a strictly earlier
// phase (analysis/planner < implementation/debugging < testing <
// documentation/synthesizer).
func synthesizePhased(specs []SubtaskSpec) {
	for i := range specs {
		phase := phaseOf(specs[i].Role)
		for j := range specs {
			if i == j {
				continue
			}
			if phaseOf(specs[j].Role) < phase {
				specs[i].DependsOn = append(specs[i].DependsOn, specs[j].ID)
			}
		}
	}
}

func dedupeAppend(ids []string, extra string) []string {
	seen := make(map[string]bool, len(ids)+1)
	out := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if extra != "" && !seen[extra] {
		out = append(out, extra)
	}
	return out
}
