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

package extraction

import (
	"context"
	"fmt"

	"github.com/wrikesync/snapin/internal/models"
)

// syncUnitsWorker lists Wrike projects as external sync units.
type syncUnitsWorker struct {
	deps Deps
}

func (w *syncUnitsWorker) Run(ctx context.Context, a Adapter) error {
	ev := a.Event()
	units, err := w.deps.Source(ev.Connection()).FetchProjects(ctx)
	if err != nil {
		w.deps.log().Error("fetch external sync units failed", "error", err)
		return emitError(ctx, a, models.ExternalSyncUnitsError,
			fmt.Sprintf("Failed to extract external sync units: %v", err))
	}

	w.deps.log().Info("extracted external sync units", "count", len(units))
	return a.Emit(ctx, models.ExternalSyncUnitsDone, &models.EventData{ExternalSyncUnits: units})
}

func (w *syncUnitsWorker) OnTimeout(ctx context.Context, a Adapter) error {
	return emitError(ctx, a, models.ExternalSyncUnitsError, timeoutMessage("external sync units"))
}

// metadataWorker pushes the external domain metadata document.
type metadataWorker struct {
	deps Deps
}

func (w *metadataWorker) Run(ctx context.Context, a Adapter) error {
	doc, err := w.deps.Metadata()
	if err != nil {
		return emitError(ctx, a, models.MetadataError,
			fmt.Sprintf("Failed to extract metadata: %v", err))
	}

	a.InitializeRepos(RepoMetadata)
	item := models.Document{Name: RepoMetadata, Body: doc}
	if _, err := a.Repo(RepoMetadata).Push(ctx, []models.Item{item}); err != nil {
		return emitError(ctx, a, models.MetadataError,
			fmt.Sprintf("Failed to push metadata: %v", err))
	}

	return a.Emit(ctx, models.MetadataDone, nil)
}

func (w *metadataWorker) OnTimeout(ctx context.Context, a Adapter) error {
	return emitError(ctx, a, models.MetadataError, timeoutMessage("metadata"))
}

// dataWorker pushes users then tasks. EXTRACTION_DATA_START extracts both
// afresh; on EXTRACTION_DATA_CONTINUE repos already marked done are
// skipped.
type dataWorker struct {
	deps Deps
}

func (w *dataWorker) Run(ctx context.Context, a Adapter) error {
	ev := a.Event()
	if isStart(ev, models.EventDataStart) {
		if err := a.Restart(ctx, RepoUsers, RepoTasks); err != nil {
			return emitError(ctx, a, models.DataError, fmt.Sprintf("Failed to start data extraction: %v", err))
		}
	}

	src := w.deps.Source(ev.Connection())
	a.InitializeRepos(RepoUsers, RepoTasks)

	if !a.Done(RepoUsers) {
		contacts, err := src.FetchContacts(ctx)
		if err != nil {
			return emitError(ctx, a, models.DataError, fmt.Sprintf("Failed to extract users: %v", err))
		}
		n, err := a.Repo(RepoUsers).Push(ctx, toItems(contacts))
		if err != nil {
			return emitError(ctx, a, models.DataError, fmt.Sprintf("Failed to push users: %v", err))
		}
		a.MarkDone(RepoUsers, n)
	}

	if !a.Done(RepoTasks) {
		projectID := ev.ProjectID()
		if projectID == "" {
			return emitError(ctx, a, models.DataError, "Failed to extract tasks: missing project id")
		}
		tasks, err := src.FetchProjectTasks(ctx, projectID)
		if err != nil {
			return emitError(ctx, a, models.DataError, fmt.Sprintf("Failed to extract tasks: %v", err))
		}
		n, err := a.Repo(RepoTasks).Push(ctx, toItems(tasks))
		if err != nil {
			return emitError(ctx, a, models.DataError, fmt.Sprintf("Failed to push tasks: %v", err))
		}
		a.MarkDone(RepoTasks, n)
	}

	return a.Emit(ctx, models.DataDone, nil)
}

func (w *dataWorker) OnTimeout(ctx context.Context, a Adapter) error {
	return emitError(ctx, a, models.DataError, timeoutMessage("data"))
}

// attachmentsWorker pushes attachment references for the project.
type attachmentsWorker struct {
	deps Deps
}

func (w *attachmentsWorker) Run(ctx context.Context, a Adapter) error {
	ev := a.Event()
	if isStart(ev, models.EventAttachmentsStart) {
		if err := a.Restart(ctx, RepoAttachments); err != nil {
			return emitError(ctx, a, models.AttachmentsError,
				fmt.Sprintf("Failed to start attachments extraction: %v", err))
		}
	}
	a.InitializeRepos(RepoAttachments)

	if !a.Done(RepoAttachments) {
		projectID := ev.ProjectID()
		if projectID == "" {
			return emitError(ctx, a, models.AttachmentsError, "Failed to extract attachments: missing project id")
		}
		atts, err := w.deps.Source(ev.Connection()).FetchProjectAttachments(ctx, projectID)
		if err != nil {
			return emitError(ctx, a, models.AttachmentsError,
				fmt.Sprintf("Failed to extract attachments: %v", err))
		}
		n, err := a.Repo(RepoAttachments).Push(ctx, toItems(atts))
		if err != nil {
			return emitError(ctx, a, models.AttachmentsError,
				fmt.Sprintf("Failed to push attachments: %v", err))
		}
		a.MarkDone(RepoAttachments, n)
	}

	return a.Emit(ctx, models.AttachmentsDone, nil)
}

func (w *attachmentsWorker) OnTimeout(ctx context.Context, a Adapter) error {
	return emitError(ctx, a, models.AttachmentsError, timeoutMessage("attachments"))
}

// deleteWorker acknowledges a delete phase. For data deletes it also
// forgets the sync unit's progress so the next START begins afresh.
type deleteWorker struct {
	done  models.LifecycleEventType
	fail  models.LifecycleEventType
	reset bool
}

func (w *deleteWorker) Run(ctx context.Context, a Adapter) error {
	if w.reset {
		if err := a.Reset(ctx); err != nil {
			return emitError(ctx, a, w.fail, fmt.Sprintf("Failed to reset extraction state: %v", err))
		}
	}
	return a.Emit(ctx, w.done, nil)
}

func (w *deleteWorker) OnTimeout(ctx context.Context, a Adapter) error {
	return emitError(ctx, a, w.fail, "Failed to delete extracted data. Lambda timeout.")
}
