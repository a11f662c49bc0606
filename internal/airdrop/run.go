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

package airdrop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/wrikesync/snapin/internal/extraction"
	"github.com/wrikesync/snapin/internal/models"
)

// timeoutGrace bounds OnTimeout and the final state save.
const timeoutGrace = 30 * time.Second

// workerSettle bounds how long a timed-out phase waits for the worker to
// return before checking whether an event was delivered.
const workerSettle = 5 * time.Second

// ErrTimeout is returned by Run when the worker did not finish in time.
var ErrTimeout = errors.New("extraction phase timed out")

// Run loads state, runs w against a with the given timeout and saves
// state afterwards. When the timeout fires first, w.OnTimeout is called
// with a fresh context so the phase still resolves with an error event.
func Run(ctx context.Context, w extraction.Worker, a *Adapter, timeout time.Duration) error {
	if err := a.LoadState(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("extraction worker panicked: %v\n%s", r, debug.Stack())
			}
		}()
		done <- w.Run(runCtx, a)
	}()

	var runErr error
	select {
	case runErr = <-done:
	case <-runCtx.Done():
		// A worker that resolved the phase as the deadline passed still wins.
		select {
		case runErr = <-done:
		default:
			return timedOut(ctx, w, a, done, timeout)
		}
		if a.Emitted() == "" {
			return timedOut(ctx, w, a, nil, timeout)
		}
	}

	if runErr != nil && a.Emitted() == "" {
		// The worker failed without resolving the phase.
		if t, ok := errorEventFor(a.ev); ok {
			_ = a.Emit(ctx, t, &models.EventData{Error: &models.ErrorRecord{Message: runErr.Error()}})
		}
	}

	if err := a.SaveState(ctx); err != nil {
		return errors.Join(runErr, fmt.Errorf("save state: %w", err))
	}
	return runErr
}

// timedOut resolves a phase whose worker overran. OnTimeout gets the first
// chance to emit. An emit the worker had in flight makes OnTimeout's event
// a drop, so once the worker settles (done is nil if it already has) the
// phase error event is sent directly when nothing was delivered.
func timedOut(ctx context.Context, w extraction.Worker, a *Adapter, done <-chan error, timeout time.Duration) error {
	a.log.Warn("extraction phase timed out", "sync_unit", a.syncUnit, "timeout", timeout)

	graceCtx, graceCancel := context.WithTimeout(context.WithoutCancel(ctx), timeoutGrace)
	defer graceCancel()

	err := w.OnTimeout(graceCtx, a)

	if done != nil {
		settle := time.NewTimer(workerSettle)
		defer settle.Stop()
		select {
		case <-done:
		case <-settle.C:
			a.log.Warn("extraction worker still running after timeout", "sync_unit", a.syncUnit)
		case <-graceCtx.Done():
		}
	}

	if a.Emitted() == "" {
		if t, ok := errorEventFor(a.ev); ok {
			msg := fmt.Sprintf("%s after %s", ErrTimeout, timeout)
			if emitErr := a.Emit(graceCtx, t, &models.EventData{Error: &models.ErrorRecord{Message: msg}}); emitErr != nil {
				err = errors.Join(err, emitErr)
			} else {
				err = nil
			}
		}
	}

	if saveErr := a.SaveState(graceCtx); saveErr != nil {
		a.log.Error("save state after timeout failed", "error", saveErr)
	}
	return errors.Join(ErrTimeout, err)
}

// errorEventFor maps an inbound extraction event to its error lifecycle
// event.
func errorEventFor(ev *models.Envelope) (models.LifecycleEventType, bool) {
	if ev == nil || ev.Payload == nil {
		return "", false
	}
	switch ev.Payload.EventType {
	case models.EventExternalSyncUnitsStart:
		return models.ExternalSyncUnitsError, true
	case models.EventMetadataStart:
		return models.MetadataError, true
	case models.EventDataStart, models.EventDataContinue:
		return models.DataError, true
	case models.EventDataDelete:
		return models.DataDeleteError, true
	case models.EventAttachmentsStart, models.EventAttachmentsContinue:
		return models.AttachmentsError, true
	case models.EventAttachmentsDelete:
		return models.AttachmentsDeleteError, true
	}
	return "", false
}
