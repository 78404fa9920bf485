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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshseeks/meshseeks/pkg/config/provider"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meshseeks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFile_AppliesDefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("MESHSEEKS_CMD", "claude-custom")

	path := writeConfigFile(t, `
checkpoint_dir: /tmp/meshseeks-test
session:
  max_concurrent_agents: 25
orchestrator:
  executor:
    command: ${MESHSEEKS_CMD}
`)

	cfg, loader, err := LoadConfigFile(context.Background(), path)
	require.NoError(t, err)
	defer loader.Close()

	require.Equal(t, "/tmp/meshseeks-test", cfg.CheckpointDir)
	require.Equal(t, 25, cfg.Session.MaxConcurrentAgents)
	require.Equal(t, "claude-custom", cfg.Orchestrator.Executor.Command)
	// Untouched fields still get their documented defaults.
	require.Equal(t, 5, cfg.Session.MaxTaskDepth)
}

func TestLoadConfigFile_RejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "checkpoint_dir: [unterminated")

	_, _, err := LoadConfigFile(context.Background(), path)
	require.Error(t, err)
}

func TestLoader_WatchInvokesOnChangeAfterFileEdit(t *testing.T) {
	path := writeConfigFile(t, "checkpoint_dir: /tmp/a\n")

	p, err := provider.New(provider.ProviderConfig{Type: provider.TypeFile, Path: path})
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	loader := NewLoader(p, WithOnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}))
	defer loader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go loader.Watch(ctx)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("checkpoint_dir: /tmp/b\n"), 0o644))

	select {
	case cfg := <-changed:
		require.Equal(t, "/tmp/b", cfg.CheckpointDir)
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not invoked after file edit")
	}
}
