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

import (
	"sort"
	"time"
)

// scaleUpLocked grows the pool by up to delta workers, subject to maxAgents
// and the cooldown window. Caller must hold p.mu.
func (p *Pool) scaleUpLocked(delta int, reason string) {
	if p.isScaling {
		return
	}
	if time.Since(p.lastScale) < p.cfg.Cooldown() {
		return
	}
	if len(p.workers) >= p.cfg.MaxAgents {
		return
	}

	p.isScaling = true
	defer func() { p.isScaling = false }()

	previous := len(p.workers)
	room := p.cfg.MaxAgents - previous
	if delta > room {
		delta = room
	}
	for i := 0; i < delta; i++ {
		p.spawnLocked()
	}
	p.lastScale = time.Now()
	p.recordScaleLocked(previous, len(p.workers), reason, "scale_up")
}

// checkScaleUpLocked applies the queue-depth trigger: scale up when queue
// depth >= scaleUpThreshold and the pool is below maxAgents. Desired delta =
// min(queueDepth - idleCount, maxAgents - currentAgents).
func (p *Pool) checkScaleUpLocked() {
	if len(p.queue) < p.cfg.ScaleUpThreshold {
		return
	}
	idle := 0
	for _, w := range p.workers {
		if w.State == StateIdle {
			idle++
		}
	}
	delta := len(p.queue) - idle
	room := p.cfg.MaxAgents - len(p.workers)
	if delta > room {
		delta = room
	}
	if delta <= 0 {
		return
	}
	p.scaleUpLocked(delta, "queue depth exceeded scaleUpThreshold")
}

// maybeScaleDownLocked removes the oldest-idle workers that have been idle
// longer than ScaleDownThreshold, down to MinAgents. Caller must hold p.mu.
func (p *Pool) maybeScaleDownLocked() {
	if p.isScaling {
		return
	}
	if time.Since(p.lastScale) < p.cfg.Cooldown() {
		return
	}
	if len(p.workers) <= p.cfg.MinAgents {
		return
	}

	threshold := p.cfg.ScaleDownThreshold()
	now := time.Now()

	var victims []*Worker
	for _, w := range p.workers {
		if w.State == StateIdle && now.Sub(w.IdleSince) > threshold {
			victims = append(victims, w)
		}
	}
	if len(victims) == 0 {
		return
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].IdleSince.Before(victims[j].IdleSince) })

	room := len(p.workers) - p.cfg.MinAgents
	if len(victims) > room {
		victims = victims[:room]
	}

	p.isScaling = true
	defer func() { p.isScaling = false }()

	previous := len(p.workers)
	for _, w := range victims {
		delete(p.workers, w.ID)
	}
	p.lastScale = time.Now()
	p.recordScaleLocked(previous, len(p.workers), "idle timeout exceeded scaleDownThreshold", "scale_down")
}

func (p *Pool) recordScaleLocked(previous, updated int, reason, trigger string) {
	p.history = append(p.history, ScaleEvent{
		At: time.Now(), PreviousCount: previous, NewCount: updated, Reason: reason, Trigger: trigger,
	})
	const maxHistory = 200
	if len(p.history) > maxHistory {
		p.history = p.history[len(p.history)-maxHistory:]
	}
	p.metrics.RecordScaleEvent(trigger)
}
