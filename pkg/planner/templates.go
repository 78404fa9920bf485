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

// subtaskTemplate is one row of a bucket's canonical expansion table.
type subtaskTemplate struct {
	role     meshtask.Role
	priority meshtask.Priority
	label    string
	tags     []string
	gate     gateKind
}

type gateKind int

const (
	gateNone gateKind = iota
	gateTesting
	gateDocumentation
)

// emit returns the ordered subtask templates for bucket, applying the
// requireTesting/requireDocumentation gates.
func emit(bucket Bucket, requireTesting, requireDocumentation bool) []subtaskTemplate {
	all := tableFor(bucket)
	out := make([]subtaskTemplate, 0, len(all))
	for _, t := range all {
		switch t.gate {
		case gateTesting:
			if !requireTesting {
				continue
			}
		case gateDocumentation:
			if !requireDocumentation {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func tableFor(bucket Bucket) []subtaskTemplate {
	switch bucket {
	case BucketFeature:
		return []subtaskTemplate{
			{role: meshtask.RoleAnalysis, priority: meshtask.PriorityHigh, label: "Analyze requirements"},
			{role: meshtask.RoleImplementation, priority: meshtask.PriorityHigh, label: "Implement"},
			{role: meshtask.RoleImplementation, priority: meshtask.PriorityMedium, label: "Integrate", tags: []string{"integration"}},
			{role: meshtask.RoleTesting, priority: meshtask.PriorityMedium, label: "Test", gate: gateTesting},
			{role: meshtask.RoleDocumentation, priority: meshtask.PriorityLow, label: "Document", gate: gateDocumentation},
		}
	case BucketBug:
		return []subtaskTemplate{
			{role: meshtask.RoleDebugging, priority: meshtask.PriorityHigh, label: "Investigate", tags: []string{"investigate"}},
			{role: meshtask.RoleImplementation, priority: meshtask.PriorityHigh, label: "Fix", tags: []string{"fix"}},
			{role: meshtask.RoleTesting, priority: meshtask.PriorityMedium, label: "Regression test", tags: []string{"regression"}, gate: gateTesting},
		}
	case BucketRefactor:
		return []subtaskTemplate{
			{role: meshtask.RoleAnalysis, priority: meshtask.PriorityHigh, label: "Analyze current implementation"},
			{role: meshtask.RoleImplementation, priority: meshtask.PriorityHigh, label: "Refactor"},
			{role: meshtask.RoleTesting, priority: meshtask.PriorityHigh, label: "Verify behavior preserved", gate: gateTesting},
		}
	case BucketTesting:
		return []subtaskTemplate{
			{role: meshtask.RoleTesting, priority: meshtask.PriorityHigh, label: "Write unit tests", tags: []string{"unit"}},
			{role: meshtask.RoleTesting, priority: meshtask.PriorityMedium, label: "Write integration tests", tags: []string{"integration"}},
		}
	case BucketDocumentation:
		return []subtaskTemplate{
			{role: meshtask.RoleDocumentation, priority: meshtask.PriorityMedium, label: "Document API", tags: []string{"api"}},
			{role: meshtask.RoleDocumentation, priority: meshtask.PriorityLow, label: "Write examples", tags: []string{"examples"}},
		}
	default: // BucketGeneric
		return []subtaskTemplate{
			{role: meshtask.RoleAnalysis, priority: meshtask.PriorityHigh, label: "Analyze"},
			{role: meshtask.RoleImplementation, priority: meshtask.PriorityHigh, label: "Implement"},
			{role: meshtask.RoleTesting, priority: meshtask.PriorityMedium, label: "Test", gate: gateTesting},
		}
	}
}
