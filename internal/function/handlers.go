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

package function

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/wrikesync/snapin/internal/airdrop"
	"github.com/wrikesync/snapin/internal/document"
	"github.com/wrikesync/snapin/internal/extraction"
	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/models"
	"github.com/wrikesync/snapin/internal/validate"
)

// Failure is the result shape of any handler that did not succeed.
type Failure struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func failed(err error) Failure {
	return Failure{
		Message:   err.Error(),
		ErrorKind: failure.KindOf(err).String(),
		Details:   failure.DetailsOf(err),
	}
}

// TasksResult is returned by fetch_project_tasks.
type TasksResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Tasks   []models.Task `json:"tasks"`
}

// ContactsResult is returned by fetch_contacts.
type ContactsResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Contacts []models.Contact `json:"contacts"`
}

// ExtractionResult is returned by extraction.
type ExtractionResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	EmittedEvent string `json:"emitted_event,omitempty"`
}

func (r *Registry) canInvoke(_ context.Context, ev *models.Envelope) (any, bool) {
	res := r.validator.CanInvoke(ev)
	return res, res.CanInvoke
}

func (r *Registry) canExtract(_ context.Context, ev *models.Envelope) (any, bool) {
	res := r.validator.CanExtract(ev)
	return res, res.CanInvoke
}

func (r *Registry) canPushData(ctx context.Context, ev *models.Envelope) (any, bool) {
	res := r.prober.Probe(ctx, ev)
	return res, res.CanPush
}

func (r *Registry) generateMetadata(context.Context, *models.Envelope) (any, bool) {
	res := r.documents.GenerateMetadata()
	return res, res.Success
}

func (r *Registry) generateInitialMapping(context.Context, *models.Envelope) (any, bool) {
	res := r.documents.GenerateMapping()
	return res, res.Success
}

func (r *Registry) fetchProjectTasks(ctx context.Context, ev *models.Envelope) (res any, ok bool) {
	defer recoverInto("Error fetching project tasks", &res, &ok)

	if err := validate.CheckFetch(ev); err != nil {
		return failed(err), false
	}
	projectID := ev.ProjectID()
	if projectID == "" {
		return failed(failure.New(failure.InputInvalid,
			"Missing project ID: set input_data.global_values.project_id or event_context.external_sync_unit_id").
			WithDetail("missing_fields", []string{"input_data.global_values.project_id"})), false
	}

	tasks, err := r.newClient(ev.Connection().Key).FetchProjectTasks(ctx, projectID)
	if err != nil {
		r.log.Error("fetch project tasks failed", "project_id", projectID, "error", err)
		return failed(err), false
	}

	return TasksResult{
		Success: true,
		Message: fmt.Sprintf("Successfully fetched %d tasks from project %s", len(tasks), projectID),
		Tasks:   tasks,
	}, true
}

func (r *Registry) fetchContacts(ctx context.Context, ev *models.Envelope) (res any, ok bool) {
	defer recoverInto("Error fetching contacts", &res, &ok)

	if err := validate.CheckFetch(ev); err != nil {
		return failed(err), false
	}

	contacts, err := r.newClient(ev.Connection().Key).FetchContacts(ctx)
	if err != nil {
		r.log.Error("fetch contacts failed", "error", err)
		return failed(err), false
	}

	return ContactsResult{
		Success:  true,
		Message:  fmt.Sprintf("Successfully fetched %d contacts", len(contacts)),
		Contacts: contacts,
	}, true
}

func (r *Registry) extraction(ctx context.Context, ev *models.Envelope) (any, bool) {
	check := r.validator.CanExtract(ev)
	if !check.CanInvoke {
		return check, false
	}

	w, err := extraction.WorkerFor(ev.Payload.EventType, extraction.Deps{
		Source: func(conn models.ConnectionData) extraction.Source { return r.newClient(conn.Key) },
		Metadata: func() (map[string]any, error) {
			return r.documents.Load(document.Metadata)
		},
		Logger: r.log,
	})
	if err != nil {
		return failed(err), false
	}

	adapter := airdrop.NewAdapter(ev, r.airdrop)
	err = airdrop.Run(ctx, w, adapter, r.timeout)

	res := ExtractionResult{
		Success:      err == nil,
		EmittedEvent: string(adapter.Emitted()),
	}
	switch {
	case errors.Is(err, airdrop.ErrTimeout):
		res.Message = fmt.Sprintf("Extraction phase %s timed out", ev.Payload.EventType)
	case err != nil:
		res.Message = fmt.Sprintf("Extraction phase %s failed: %v", ev.Payload.EventType, err)
	default:
		res.Message = fmt.Sprintf("Extraction phase %s completed", ev.Payload.EventType)
	}
	if err != nil {
		r.log.Error("extraction phase failed", "event_type", ev.Payload.EventType, "error", err)
	}
	return res, res.Success
}

// recoverInto converts a panic into a Failure result.
func recoverInto(prefix string, res *any, ok *bool) {
	if p := recover(); p != nil {
		*res = Failure{
			Message:   fmt.Sprintf("%s: %v", prefix, p),
			ErrorKind: failure.Internal.String(),
			Details:   map[string]any{"error": fmt.Sprintf("%v\n%s", p, debug.Stack())},
		}
		*ok = false
	}
}
