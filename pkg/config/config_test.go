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

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetDefaults_FillsDocumentedDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	require.Equal(t, "~/.meshseeks/sessions", cfg.CheckpointDir)
	require.Equal(t, 100, cfg.Session.MaxConcurrentAgents)
	require.Equal(t, 5, cfg.Session.MaxTaskDepth)
	require.Equal(t, int64(3_600_000), cfg.Session.AgentTimeoutMs)
	require.Equal(t, int64(604_800_000), cfg.Session.SessionTimeoutMs)
	require.Equal(t, 1, cfg.Session.Pool.MinAgents)
	require.Equal(t, 500, cfg.Session.Pool.MaxAgents)
	require.Equal(t, 0.8, cfg.Session.Judge.PassThreshold)
	require.Equal(t, 1000, cfg.Orchestrator.IterationCap)
	require.Equal(t, "claude", cfg.Orchestrator.Executor.Command)
	require.Equal(t, "info", cfg.Logger.Level)
}

func TestValidate_RejectsInconsistentPoolBounds(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Session.Pool.MaxAgents = 0
	cfg.Session.Pool.MinAgents = 5

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_agents")
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Logger.Level = "verbose-ish"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "logger")
}

func TestValidate_PassesWithDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
}
