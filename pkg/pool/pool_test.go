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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

func testConfig() Config {
	return Config{
		MinAgents:              1,
		MaxAgents:              4,
		InitialAgents:          2,
		ScaleUpThreshold:       2,
		ScaleDownThresholdMs:   50,
		CooldownMs:             0,
		HealthCheckIntervalMs:  50_000_000, // effectively disabled for unit tests
		AgentTimeoutMs:         3_600_000,
		MaxConsecutiveFailures: 3,
	}
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p, err := New(testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func TestNew_SpawnsInitialAgents(t *testing.T) {
	p := newTestPool(t)
	require.Equal(t, 2, p.TotalAgents())
}

func TestAcquireRelease_RoundTrip(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	id, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "task-1", time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, p.ReleaseAgent(id, true))
}

func TestAcquire_PrefersRoleMatch(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	id1, err := p.AcquireAgent(ctx, meshtask.RoleTesting, meshtask.PriorityMedium, "t1", time.Second)
	require.NoError(t, err)
	require.NoError(t, p.ReleaseAgent(id1, true))

	// id1's LastRole is now "testing" and it is the sole idle worker with
	// that role; acquiring "testing" again should prefer it.
	id2, err := p.AcquireAgent(ctx, meshtask.RoleTesting, meshtask.PriorityMedium, "t2", time.Second)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestAcquire_ScalesUpWhenNoIdleWorker(t *testing.T) {
	cfg := testConfig()
	cfg.InitialAgents = 1
	cfg.MinAgents = 1
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	}()

	ctx := context.Background()
	id1, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t1", time.Second)
	require.NoError(t, err)

	// No idle worker remains; pool should scale up by one to serve this.
	id2, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t2", time.Second)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
	require.GreaterOrEqual(t, p.TotalAgents(), 2)
}

func TestAcquire_BlocksAndIsServedOnRelease(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAgents = 1
	cfg.InitialAgents = 1
	cfg.MinAgents = 1
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	}()

	ctx := context.Background()
	id1, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t1", time.Second)
	require.NoError(t, err)

	done := make(chan string, 1)
	go func() {
		id, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t2", 2*time.Second)
		require.NoError(t, err)
		done <- id
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, p.ReleaseAgent(id1, true))

	select {
	case id2 := <-done:
		require.Equal(t, id1, id2)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked acquire was never served")
	}
}

func TestAcquire_TimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAgents = 1
	cfg.InitialAgents = 1
	cfg.MinAgents = 1
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	}()

	ctx := context.Background()
	_, err = p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t1", time.Second)
	require.NoError(t, err)

	_, err = p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t2", 50*time.Millisecond)
	require.ErrorIs(t, err, ErrAcquireTimeout)
	require.Equal(t, 0, p.QueueDepth())
}

func TestMarkAgentFailed_ReplacesBelowMinimum(t *testing.T) {
	cfg := testConfig()
	cfg.MinAgents = 2
	cfg.InitialAgents = 2
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	}()

	ctx := context.Background()
	id, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t1", time.Second)
	require.NoError(t, err)

	require.NoError(t, p.MarkAgentFailed(id, nil))
	require.Equal(t, 2, p.TotalAgents())
}

func TestReleaseAgent_UnknownIDErrors(t *testing.T) {
	p := newTestPool(t)
	require.ErrorIs(t, p.ReleaseAgent("nonexistent", true), ErrNotFound)
}

func TestExcessiveFailuresTriggered(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 2
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	}()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		id, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t", time.Second)
		require.NoError(t, err)
		require.NoError(t, p.ReleaseAgent(id, false))
	}
	require.True(t, p.ExcessiveFailuresTriggered())
}

func TestHealth_FreshPoolIsHealthy(t *testing.T) {
	p := newTestPool(t)
	require.Equal(t, HealthHealthy, p.Health())
}

func TestShutdown_RejectsQueuedAcquisitions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAgents = 1
	cfg.InitialAgents = 1
	cfg.MinAgents = 1
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t1", time.Second)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.AcquireAgent(ctx, meshtask.RoleImplementation, meshtask.PriorityHigh, "t2", 5*time.Second)
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrShuttingDown)
	case <-time.After(time.Second):
		t.Fatal("queued acquire was never rejected on shutdown")
	}
}
