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

package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(&MetricsConfig{Namespace: "meshseeks_test"})
	require.NoError(t, err)
	return m
}

func TestMetricsPoolRecorderInterface(t *testing.T) {
	m := newTestMetrics(t)

	m.SetPoolSize(10, 4, 6, 0)
	m.SetQueueDepth(3)
	m.RecordScaleEvent("queue_depth")
	m.RecordExcessiveFailures()

	metricFamilies, err := m.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestMetricsTaskAndJudge(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordTaskTransition("completed", "implementation")
	m.RecordTaskDuration("implementation", 2*time.Second)
	m.SetTreeDepthCount(1, 5)
	m.RecordJudgeVerdict(true, "implementation", 0.91)
	m.RecordJudgeVerdict(false, "testing", 0.4)

	metricFamilies, err := m.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestMetricsCheckpointAndSession(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCheckpointCreated(4096)
	m.RecordCheckpointRestored()
	m.SetSessionsActive("active", 2)
	m.RecordSessionEvent("task_completed")

	metricFamilies, err := m.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.SetPoolSize(1, 1, 0, 0)
		m.SetQueueDepth(0)
		m.RecordScaleEvent("x")
		m.RecordExcessiveFailures()
		m.RecordTaskTransition("failed", "debugging")
		m.RecordTaskDuration("debugging", time.Second)
		m.SetTreeDepthCount(0, 1)
		m.RecordJudgeVerdict(true, "analysis", 1.0)
		m.RecordCheckpointCreated(1)
		m.RecordCheckpointRestored()
		m.SetSessionsActive("active", 1)
		m.RecordSessionEvent("session_started")
	})
}
