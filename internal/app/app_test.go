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

package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikesync/snapin/internal/config"
	"github.com/wrikesync/snapin/internal/document"
	"github.com/wrikesync/snapin/internal/function"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              8080,
		LogLevel:          "info",
		LogFormat:         "json",
		WrikeBaseURL:      config.DefaultWrikeBaseURL,
		RequestTimeout:    time.Second,
		ExtractionTimeout: time.Minute,
		StaticDir:         filepath.Join("..", "..", "static"),
		QueuePrefix:       "airdrop",
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBuild_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := Build(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.Checks(), 1)
	assert.Equal(t, "redis", a.Checks()[0].Name)
	assert.NoError(t, a.Checks()[0].Ping(context.Background()))

	res := a.Registry.Invoke(context.Background(), function.GenerateMetadata, nil).FunctionResult.(document.Result)
	assert.True(t, res.Success, res.Message)
}

func TestBuild_WithoutBackends(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.Checks())
	assert.Len(t, a.Registry.Names(), 8)
}

func TestBuild_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	mr.Close()

	_, err := Build(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, "connect to Redis")
}

func TestBuild_BadRedisURL(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "not-a-url://"

	_, err := Build(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, "parse REDIS_URL")
}

type fakePruner struct {
	calls []time.Duration
	n     int64
	err   error
}

func (p *fakePruner) PruneOlderThan(_ context.Context, age time.Duration) (int64, error) {
	p.calls = append(p.calls, age)
	return p.n, p.err
}

func TestPruneState(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	p := &fakePruner{n: 3}
	pruneState(context.Background(), p, 48*time.Hour, log)
	assert.Equal(t, []time.Duration{48 * time.Hour}, p.calls)
	assert.Contains(t, buf.String(), "rows=3")

	disabled := &fakePruner{}
	pruneState(context.Background(), disabled, 0, log)
	assert.Empty(t, disabled.calls)

	buf.Reset()
	pruneState(context.Background(), &fakePruner{err: errors.New("db down")}, time.Hour, log)
	assert.Contains(t, buf.String(), "prune extraction state failed")
}
