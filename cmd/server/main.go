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

// Wrike snap-in HTTP server
//
// Entry point for running the snap-in functions as a long-lived service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to Redis (record sink, dedup) and optionally PostgreSQL (state)
//  3. Serves POST /invoke, GET /health and GET /metrics
//  4. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wrikesync/snapin/internal/app"
	"github.com/wrikesync/snapin/internal/config"
	"github.com/wrikesync/snapin/internal/logging"
	"github.com/wrikesync/snapin/internal/server"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting Wrike snap-in server",
		"wrike_base_url", cfg.WrikeBaseURL,
		"extraction_timeout", cfg.ExtractionTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Backends + Registry ---
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to initialise snap-in", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// --- HTTP Server ---
	// In-flight extractions get the full extraction timeout to finish.
	handler := server.NewHandler(a.Registry, a.Checks()...)
	ready, stopped, err := server.Serve(ctx, cfg.Port, handler, cfg.ExtractionTimeout+15*time.Second)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	<-ready
	slog.Info("snap-in server ready", "functions", a.Registry.Names())

	if err := <-stopped; err != nil {
		slog.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}

	slog.Info("snap-in server stopped")
}
