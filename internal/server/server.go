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

// Package server exposes the function registry over HTTP. The platform
// POSTs an event envelope to /invoke and reads back the JSON response.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wrikesync/snapin/internal/function"
)

// maxBodyBytes caps an inbound envelope.
const maxBodyBytes = 10 << 20

// Check is a named dependency probe used by /health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler serves invocations.
type Handler struct {
	registry *function.Registry
	checks   []Check
}

// NewHandler creates a Handler. checks run on every /health request.
func NewHandler(registry *function.Registry, checks ...Check) *Handler {
	return &Handler{registry: registry, checks: checks}
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.ServeHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/invoke", h.ServeInvoke)
	r.Post("/invoke/{function}", h.ServeInvoke)
	return r
}

// ServeInvoke decodes the envelope and runs the requested function. The
// function name comes from the path when present, otherwise from
// execution_metadata.function_name.
func (h *Handler) ServeInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, function.Response{Error: "request body too large"})
		return
	}

	resp, err := h.registry.InvokeBody(r.Context(), chi.URLParam(r, "function"), body)
	if err != nil {
		slog.Warn("invalid invocation body",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusBadRequest, function.Response{Error: "invalid event payload: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ServeHealth reports healthy when every check passes.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			slog.Warn("health check failed", "check", c.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": c.Name + " unhealthy",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

// Serve starts the HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before
// accepting connections. The server stops when ctx is cancelled, allowing
// in-flight invocations up to shutdownTimeout to finish.
func Serve(ctx context.Context, port int, handler *Handler, shutdownTimeout time.Duration) (<-chan struct{}, <-chan error, error) {
	server := &http.Server{
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind port %d: %w", port, err)
	}

	ready := make(chan struct{})
	stopped := make(chan error, 1)

	go func() {
		<-ctx.Done()
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	go func() {
		slog.Info("server listening", "addr", ln.Addr().String())
		close(ready)
		err := server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		stopped <- err
	}()

	return ready, stopped, nil
}
