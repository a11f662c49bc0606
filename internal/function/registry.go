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

// Package function routes an invocation to the named snap-in function and
// wraps its result in the response envelope.
package function

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/wrikesync/snapin/internal/airdrop"
	"github.com/wrikesync/snapin/internal/document"
	"github.com/wrikesync/snapin/internal/extraction"
	"github.com/wrikesync/snapin/internal/metrics"
	"github.com/wrikesync/snapin/internal/models"
	"github.com/wrikesync/snapin/internal/push"
	"github.com/wrikesync/snapin/internal/validate"
	"github.com/wrikesync/snapin/internal/wrike"
)

// Function names.
const (
	CanInvoke              = "can_invoke"
	CanExtract             = "can_extract"
	CanPushData            = "can_push_data"
	FetchProjectTasks      = "fetch_project_tasks"
	FetchContacts          = "fetch_contacts"
	GenerateMetadata       = "generate_metadata"
	GenerateInitialMapping = "generate_initial_mapping"
	Extraction             = "extraction"
)

// Response is what every invocation returns.
type Response struct {
	FunctionResult any    `json:"function_result,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Handler runs one function. ok reports whether the result is a success,
// for metrics only.
type Handler func(ctx context.Context, ev *models.Envelope) (result any, ok bool)

// Client is the subset of the Wrike client the fetch handlers use.
type Client interface {
	extraction.Source
}

// Config wires a Registry.
type Config struct {
	Logger            *slog.Logger
	Validator         *validate.Validator
	Prober            *push.Prober
	Documents         *document.Provider
	WrikeBaseURL      string
	RequestTimeout    time.Duration
	ExtractionTimeout time.Duration
	Airdrop           airdrop.Options

	// NewClient overrides how Wrike clients are built.
	NewClient func(apiKey string) Client
}

// Registry maps function names to handlers.
type Registry struct {
	log       *slog.Logger
	handlers  map[string]Handler
	validator *validate.Validator
	prober    *push.Prober
	documents *document.Provider
	newClient func(apiKey string) Client
	timeout   time.Duration
	airdrop   airdrop.Options
}

// NewRegistry creates a Registry with every function registered.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		log:       cfg.Logger,
		validator: cfg.Validator,
		prober:    cfg.Prober,
		documents: cfg.Documents,
		newClient: cfg.NewClient,
		timeout:   cfg.ExtractionTimeout,
		airdrop:   cfg.Airdrop,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.validator == nil {
		r.validator = validate.New(r.log)
	}
	if r.prober == nil {
		r.prober = push.NewProber(nil, r.log)
	}
	if r.documents == nil {
		r.documents = document.NewProvider("", r.log)
	}
	if r.newClient == nil {
		baseURL, timeout := cfg.WrikeBaseURL, cfg.RequestTimeout
		r.newClient = func(apiKey string) Client {
			return wrike.NewClient(apiKey, baseURL).WithTimeout(timeout)
		}
	}
	if r.timeout <= 0 {
		r.timeout = 10 * time.Minute
	}
	if r.airdrop.Logger == nil {
		r.airdrop.Logger = r.log
	}

	r.handlers = map[string]Handler{
		CanInvoke:              r.canInvoke,
		CanExtract:             r.canExtract,
		CanPushData:            r.canPushData,
		FetchProjectTasks:      r.fetchProjectTasks,
		FetchContacts:          r.fetchContacts,
		GenerateMetadata:       r.generateMetadata,
		GenerateInitialMapping: r.generateInitialMapping,
		Extraction:             r.extraction,
	}
	return r
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the function called name, or the one named in the
// envelope's execution metadata when name is empty. ev may be nil, which
// the handlers report as "No events provided".
//
// Invoke does not recover panics; can_invoke relies on that.
func (r *Registry) Invoke(ctx context.Context, name string, ev *models.Envelope) Response {
	if name == "" {
		name = ev.FunctionName()
	}
	if name == "" {
		metrics.InvocationsTotal.WithLabelValues("", "unknown").Inc()
		return Response{Error: "function name is missing"}
	}

	h, ok := r.handlers[name]
	if !ok {
		r.log.Warn("unknown function", "function", name)
		metrics.InvocationsTotal.WithLabelValues(name, "unknown").Inc()
		return Response{Error: "unknown function: " + name}
	}

	started := time.Now()
	result, success := h(ctx, ev)

	outcome := "failure"
	if success {
		outcome = "success"
	}
	metrics.InvocationsTotal.WithLabelValues(name, outcome).Inc()
	r.log.Info("function invoked",
		"function", name,
		"outcome", outcome,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return Response{FunctionResult: result}
}

// InvokeBody decodes a request body (one envelope, or a legacy array of
// which only the first element is used) and invokes name.
func (r *Registry) InvokeBody(ctx context.Context, name string, body []byte) (Response, error) {
	events, err := models.DecodeEvents(body)
	if err != nil {
		return Response{}, err
	}
	if len(events) > 1 {
		r.log.Debug("ignoring extra events", "count", len(events)-1)
	}
	return r.Invoke(ctx, name, models.First(events)), nil
}
