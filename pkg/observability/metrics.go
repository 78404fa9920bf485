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
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters/gauges/histograms for every core
// component: the agent pool, the task tree, the judge, the checkpoint
// store, and sessions overall. It satisfies the small recorder interfaces
// pkg/pool and pkg/swarmsession declare locally, so those packages never
// import this one directly.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	poolAgents        *prometheus.GaugeVec
	poolQueueDepth     prometheus.Gauge
	poolScaleEvents    *prometheus.CounterVec
	poolExcessiveFails prometheus.Counter

	tasksTotal       *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	tasksByDepth     *prometheus.GaugeVec

	judgeVerdicts *prometheus.CounterVec
	judgeScore    prometheus.Histogram

	checkpointsCreated  prometheus.Counter
	checkpointsRestored prometheus.Counter
	checkpointSizeBytes prometheus.Histogram

	sessionsActive     *prometheus.GaugeVec
	sessionEventsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers every collector under cfg.Namespace.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil {
		cfg = &MetricsConfig{}
	}
	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initPoolMetrics()
	m.initTaskMetrics()
	m.initJudgeMetrics()
	m.initCheckpointMetrics()
	m.initSessionMetrics()

	return m, nil
}

func (m *Metrics) opts(subsystem, name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   m.config.Namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.config.ConstLabels,
	}
}

func (m *Metrics) initPoolMetrics() {
	m.poolAgents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts(m.opts("pool", "agents", "Current number of pool workers by state.")),
		[]string{"state"},
	)
	m.poolQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts(m.opts("pool", "queue_depth", "Number of acquire requests waiting in the priority queue.")),
	)
	m.poolScaleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts(m.opts("pool", "scale_events_total", "Total scale up/down events, labeled by trigger.")),
		[]string{"trigger"},
	)
	m.poolExcessiveFails = prometheus.NewCounter(
		prometheus.CounterOpts(m.opts("pool", "excessive_failures_total", "Total times the consecutive-failure threshold was crossed.")),
	)
	m.registry.MustRegister(m.poolAgents, m.poolQueueDepth, m.poolScaleEvents, m.poolExcessiveFails)
}

func (m *Metrics) initTaskMetrics() {
	m.tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts(m.opts("task", "transitions_total", "Total task status transitions, labeled by status and role.")),
		[]string{"status", "role"},
	)
	m.taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts(m.opts("task", "duration_seconds", "Wall-clock time from in_progress to a terminal status, labeled by role.")),
		[]string{"role"},
	)
	m.tasksByDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts(m.opts("task", "tree_depth", "Current task count at each tree depth.")),
		[]string{"depth"},
	)
	m.registry.MustRegister(m.tasksTotal, m.taskDuration, m.tasksByDepth)
}

func (m *Metrics) initJudgeMetrics() {
	m.judgeVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts(m.opts("judge", "verdicts_total", "Total judge verdicts, labeled by pass/fail and role.")),
		[]string{"result", "role"},
	)
	m.judgeScore = prometheus.NewHistogram(
		prometheus.HistogramOpts(m.opts("judge", "score", "Distribution of overall weighted judge scores.")),
	)
	m.registry.MustRegister(m.judgeVerdicts, m.judgeScore)
}

func (m *Metrics) initCheckpointMetrics() {
	m.checkpointsCreated = prometheus.NewCounter(
		prometheus.CounterOpts(m.opts("checkpoint", "created_total", "Total checkpoints written.")),
	)
	m.checkpointsRestored = prometheus.NewCounter(
		prometheus.CounterOpts(m.opts("checkpoint", "restored_total", "Total checkpoints restored from.")),
	)
	m.checkpointSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts(m.opts("checkpoint", "size_bytes", "Serialized size of written checkpoints.")),
	)
	m.registry.MustRegister(m.checkpointsCreated, m.checkpointsRestored, m.checkpointSizeBytes)
}

func (m *Metrics) initSessionMetrics() {
	m.sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts(m.opts("session", "active", "Current sessions by status.")),
		[]string{"status"},
	)
	m.sessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts(m.opts("session", "events_total", "Total session lifecycle events, labeled by event type.")),
		[]string{"event"},
	)
	m.registry.MustRegister(m.sessionsActive, m.sessionEventsTotal)
}

// SetPoolSize implements pkg/pool's metricsRecorder interface.
func (m *Metrics) SetPoolSize(total, idle, running, failed int) {
	if m == nil {
		return
	}
	m.poolAgents.WithLabelValues("total").Set(float64(total))
	m.poolAgents.WithLabelValues("idle").Set(float64(idle))
	m.poolAgents.WithLabelValues("running").Set(float64(running))
	m.poolAgents.WithLabelValues("failed").Set(float64(failed))
}

// SetQueueDepth implements pkg/pool's metricsRecorder interface.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.poolQueueDepth.Set(float64(depth))
}

// RecordScaleEvent implements pkg/pool's metricsRecorder interface.
func (m *Metrics) RecordScaleEvent(trigger string) {
	if m == nil {
		return
	}
	m.poolScaleEvents.WithLabelValues(trigger).Inc()
}

// RecordExcessiveFailures implements pkg/pool's metricsRecorder interface.
func (m *Metrics) RecordExcessiveFailures() {
	if m == nil {
		return
	}
	m.poolExcessiveFails.Inc()
}

// RecordTaskTransition records a task entering newStatus.
func (m *Metrics) RecordTaskTransition(status, role string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(status, role).Inc()
}

// RecordTaskDuration records how long a task spent in flight.
func (m *Metrics) RecordTaskDuration(role string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(role).Observe(d.Seconds())
}

// SetTreeDepthCount records the current number of tasks at depth.
func (m *Metrics) SetTreeDepthCount(depth, count int) {
	if m == nil {
		return
	}
	m.tasksByDepth.WithLabelValues(strconv.Itoa(depth)).Set(float64(count))
}

// RecordJudgeVerdict records a pass/fail verdict for role.
func (m *Metrics) RecordJudgeVerdict(pass bool, role string, score float64) {
	if m == nil {
		return
	}
	result := "fail"
	if pass {
		result = "pass"
	}
	m.judgeVerdicts.WithLabelValues(result, role).Inc()
	m.judgeScore.Observe(score)
}

// RecordCheckpointCreated records a successful checkpoint write of sizeBytes.
func (m *Metrics) RecordCheckpointCreated(sizeBytes int) {
	if m == nil {
		return
	}
	m.checkpointsCreated.Inc()
	m.checkpointSizeBytes.Observe(float64(sizeBytes))
}

// RecordCheckpointRestored records a successful restore.
func (m *Metrics) RecordCheckpointRestored() {
	if m == nil {
		return
	}
	m.checkpointsRestored.Inc()
}

// SetSessionsActive sets the current count of sessions in status.
func (m *Metrics) SetSessionsActive(status string, count int) {
	if m == nil {
		return
	}
	m.sessionsActive.WithLabelValues(status).Set(float64(count))
}

// RecordSessionEvent records a session lifecycle event.
func (m *Metrics) RecordSessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEventsTotal.WithLabelValues(event).Inc()
}

// Handler returns the HTTP handler serving this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying Prometheus registry, e.g. for tests that
// want to scrape collected values directly.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
