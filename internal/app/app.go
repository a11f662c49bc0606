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

// Package app wires configuration into a ready function registry. Every
// entry point (HTTP server, Lambda, CLI) builds its registry here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wrikesync/snapin/internal/airdrop"
	"github.com/wrikesync/snapin/internal/config"
	"github.com/wrikesync/snapin/internal/dedup"
	"github.com/wrikesync/snapin/internal/document"
	"github.com/wrikesync/snapin/internal/function"
	"github.com/wrikesync/snapin/internal/push"
	"github.com/wrikesync/snapin/internal/queue"
	"github.com/wrikesync/snapin/internal/server"
	"github.com/wrikesync/snapin/internal/state"
	"github.com/wrikesync/snapin/internal/validate"
)

// App holds the registry and the connections behind it.
type App struct {
	Registry *function.Registry

	rdb    *redis.Client
	pool   *pgxpool.Pool
	checks []server.Check
	log    *slog.Logger
}

// Build connects to Redis and Postgres when configured and assembles the
// registry. Without Redis, phases that push records emit their error
// event; without Postgres, extraction state lives in memory.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{log: log}
	opts := airdrop.Options{
		Emitter: airdrop.NewEmitter(&http.Client{Timeout: cfg.RequestTimeout}),
		Logger:  log,
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.rdb = redis.NewClient(opt)

		publisher := queue.NewPublisher(a.rdb, cfg.QueuePrefix)
		if err := publisher.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		log.Info("connected to Redis")

		opts.Publisher = publisher
		opts.Dedup = dedup.NewFilter(a.rdb, cfg.QueuePrefix)
		a.checks = append(a.checks, server.Check{Name: "redis", Ping: publisher.Ping})
	} else {
		log.Warn("REDIS_URL not set, record-pushing phases will fail")
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		a.pool = pool
		if err := pool.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		log.Info("connected to PostgreSQL")

		store, err := state.NewPostgresStore(ctx, pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts.Store = store
		pruneState(ctx, store, cfg.StateRetention, log)
		a.checks = append(a.checks, server.Check{Name: "postgres", Ping: pool.Ping})
	} else {
		opts.Store = state.NewMemoryStore()
	}

	a.Registry = function.NewRegistry(function.Config{
		Logger:            log,
		Validator:         validate.New(log),
		Prober:            push.NewProber(&http.Client{Timeout: cfg.RequestTimeout}, log),
		Documents:         document.NewProvider(cfg.StaticDir, log),
		WrikeBaseURL:      cfg.WrikeBaseURL,
		RequestTimeout:    cfg.RequestTimeout,
		ExtractionTimeout: cfg.ExtractionTimeout,
		Airdrop:           opts,
	})
	return a, nil
}

// statePruner drops state rows that have not been touched for a while.
type statePruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// pruneState removes extraction state untouched for longer than retention.
// Failures are only logged.
func pruneState(ctx context.Context, p statePruner, retention time.Duration, log *slog.Logger) {
	if retention <= 0 {
		return
	}
	n, err := p.PruneOlderThan(ctx, retention)
	if err != nil {
		log.Warn("prune extraction state failed", "error", err)
		return
	}
	log.Info("pruned extraction state", "rows", n, "retention", retention)
}

// Checks returns the health probes for the configured backends.
func (a *App) Checks() []server.Check { return a.checks }

// Close releases Redis and Postgres connections.
func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
