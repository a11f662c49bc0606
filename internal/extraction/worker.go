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

// Package extraction implements the per-phase extraction workers. A
// worker fetches from Wrike, pushes normalised records through the
// adapter's repos and emits exactly one terminal lifecycle event.
package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/models"
)

// Repo names.
const (
	RepoMetadata    = "external_domain_metadata"
	RepoUsers       = "users"
	RepoTasks       = "tasks"
	RepoAttachments = "attachments"
)

// Repo accepts normalised items.
type Repo interface {
	// Push stores items and returns how many were new.
	Push(ctx context.Context, items []models.Item) (int, error)
}

// Adapter is what a worker sees of the surrounding platform.
type Adapter interface {
	Event() *models.Envelope
	InitializeRepos(names ...string)
	Repo(name string) Repo
	Emit(ctx context.Context, t models.LifecycleEventType, data *models.EventData) error

	// Done and MarkDone track per-repo completion across CONTINUE calls.
	Done(repo string) bool
	MarkDone(repo string, pushed int)

	// Restart clears progress and dedup memory for repos so a START
	// event extracts them again from scratch.
	Restart(ctx context.Context, repos ...string) error

	// Reset forgets everything recorded for the sync unit.
	Reset(ctx context.Context) error
}

// Source is the subset of the Wrike client the workers use.
type Source interface {
	FetchProjects(ctx context.Context) ([]models.ExternalSyncUnit, error)
	FetchContacts(ctx context.Context) ([]models.Contact, error)
	FetchProjectTasks(ctx context.Context, projectID string) ([]models.Task, error)
	FetchProjectAttachments(ctx context.Context, projectID string) ([]models.Attachment, error)
}

// SourceFactory builds a Source from the connection data of an event.
type SourceFactory func(conn models.ConnectionData) Source

// MetadataFunc returns the external domain metadata document.
type MetadataFunc func() (map[string]any, error)

// Worker runs one extraction phase.
type Worker interface {
	Run(ctx context.Context, a Adapter) error
	OnTimeout(ctx context.Context, a Adapter) error
}

// Deps are the collaborators shared by all workers. A nil Logger uses
// slog.Default().
type Deps struct {
	Source   SourceFactory
	Metadata MetadataFunc
	Logger   *slog.Logger
}

func (d Deps) log() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// WorkerFor selects the worker for an extraction event type.
func WorkerFor(t models.EventType, deps Deps) (Worker, error) {
	switch t {
	case models.EventExternalSyncUnitsStart:
		return &syncUnitsWorker{deps: deps}, nil
	case models.EventMetadataStart:
		return &metadataWorker{deps: deps}, nil
	case models.EventDataStart, models.EventDataContinue:
		return &dataWorker{deps: deps}, nil
	case models.EventDataDelete:
		return &deleteWorker{done: models.DataDeleteDone, fail: models.DataDeleteError, reset: true}, nil
	case models.EventAttachmentsStart, models.EventAttachmentsContinue:
		return &attachmentsWorker{deps: deps}, nil
	case models.EventAttachmentsDelete:
		return &deleteWorker{done: models.AttachmentsDeleteDone, fail: models.AttachmentsDeleteError}, nil
	}
	return nil, failure.Newf(failure.UnsupportedEventType, "Unsupported event type: %s", t)
}

// emitError reports a failed phase.
func emitError(ctx context.Context, a Adapter, t models.LifecycleEventType, msg string) error {
	return a.Emit(ctx, t, &models.EventData{Error: &models.ErrorRecord{Message: msg}})
}

// isStart reports whether ev is the given START event.
func isStart(ev *models.Envelope, t models.EventType) bool {
	return ev != nil && ev.Payload != nil && ev.Payload.EventType == t
}

func timeoutMessage(what string) string {
	return fmt.Sprintf("Failed to extract %s. Lambda timeout.", what)
}

// toItems widens a typed slice for Repo.Push.
func toItems[T models.Item](in []T) []models.Item {
	out := make([]models.Item, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
