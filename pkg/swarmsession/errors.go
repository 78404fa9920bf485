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

package swarmsession

import "errors"

// Sentinel errors. A lookup miss always surfaces ErrSessionNotFound /
// ErrAgentNotFound — the caller is never left to guess whether a missing id
// means "wrong session" or "wrong checkpoint" (see DESIGN.md's Open Question
// decision on checkpoint/session id conflation).
var (
	ErrSessionNotFound   = errors.New("swarmsession: session not found")
	ErrAgentNotFound     = errors.New("swarmsession: agent not found")
	ErrNoActiveSession   = errors.New("swarmsession: no active session")
	ErrInvalidTransition = errors.New("swarmsession: invalid session status transition")
	ErrSessionTerminal   = errors.New("swarmsession: session is terminal")
)
