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

package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestInit_SimpleFormatWritesLevelAndMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	Init(slog.LevelInfo, f, "simple")
	slog.Info("hello", "key", "value")
	f.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "INFO hello key=value")
}

func TestInit_FiltersThirdPartyLogsBelowDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	Init(slog.LevelInfo, f, "simple")
	// A log record whose PC doesn't resolve to this module (PC 0 here,
	// simulating a frame runtime.FuncForPC can't attribute) is dropped
	// unless the level is debug.
	l := GetLogger()
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "third party", 0)
	require.NoError(t, l.Handler().Handle(context.Background(), record))
	f.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, string(data))
}

func TestOpenLogFile_CreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	f1, cleanup1, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f1.WriteString("first\n")
	require.NoError(t, err)
	cleanup1()

	f2, cleanup2, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f2.WriteString("second\n")
	require.NoError(t, err)
	cleanup2()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(data))
}

func TestGetLogger_InitializesOnFirstCall(t *testing.T) {
	defaultLogger = nil
	l := GetLogger()
	require.NotNil(t, l)
	require.Same(t, l, GetLogger())
}
