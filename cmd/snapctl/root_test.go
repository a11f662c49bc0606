// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikesync/snapin/internal/app"
	"github.com/wrikesync/snapin/internal/config"
)

func testBuilder(ctx context.Context, _ string) (*app.App, error) {
	cfg := &config.Config{
		WrikeBaseURL:      config.DefaultWrikeBaseURL,
		RequestTimeout:    time.Second,
		ExtractionTimeout: time.Minute,
		StaticDir:         filepath.Join("..", "..", "static"),
		QueuePrefix:       "airdrop",
	}
	return app.Build(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(testBuilder)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd(testBuilder).Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["functions"])
	assert.True(t, names["invoke"])
}

func TestFunctions(t *testing.T) {
	out, err := run(t, "", "functions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 8)
	assert.Contains(t, lines, "can_invoke")
	assert.Contains(t, lines, "extraction")
}

func TestInvoke_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"payload":{}}`), 0o644))

	out, err := run(t, "", "invoke", "can_invoke", "--event", path)
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, true, resp["function_result"].(map[string]any)["can_invoke"])
}

func TestInvoke_FromStdin(t *testing.T) {
	out, err := run(t, `[]`, "invoke", "can_extract", "-e", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "No events provided")
}

func TestInvoke_UnknownFunction(t *testing.T) {
	out, err := run(t, `{}`, "invoke", "nope", "-e", "-")
	assert.EqualError(t, err, "unknown function: nope")
	assert.Contains(t, out, `"error": "unknown function: nope"`)
}

func TestInvoke_RequiresEvent(t *testing.T) {
	_, err := run(t, "", "invoke", "can_invoke")
	assert.Error(t, err)

	_, err = run(t, "", "invoke", "can_invoke", "--event", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read event file")
}
