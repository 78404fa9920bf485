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

package pool

import "time"

// healthLoop fires every HealthCheckInterval: workers stuck in "running"
// past AgentTimeout are marked failed, then a scale-up check runs.
func (p *Pool) healthLoop() {
	defer p.healthWG.Done()

	ticker := time.NewTicker(p.cfg.HealthCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runHealthCheck()
		case <-p.healthStop:
			return
		}
	}
}

func (p *Pool) runHealthCheck() {
	p.mu.Lock()
	defer p.mu.Unlock()

	timeout := p.cfg.AgentTimeout()
	now := time.Now()

	var stale []string
	for id, w := range p.workers {
		if w.State == StateRunning && now.Sub(w.LastActivity) > timeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		w := p.workers[id]
		w.State = StateFailed
		w.ConsecutiveFailures++
	}
	for _, id := range stale {
		delete(p.workers, id)
		if len(p.workers) < p.cfg.MinAgents {
			p.spawnLocked()
		}
	}

	p.checkScaleUpLocked()
	p.maybeScaleDownLocked()
	p.reportSizeLocked()
}
