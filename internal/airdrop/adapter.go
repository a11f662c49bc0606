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

// Package airdrop is the platform side of an extraction phase: it emits
// lifecycle events to the callback URL, pushes records to Redis-backed
// repos and persists per-sync-unit state between phases.
package airdrop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wrikesync/snapin/internal/extraction"
	"github.com/wrikesync/snapin/internal/metrics"
	"github.com/wrikesync/snapin/internal/models"
	"github.com/wrikesync/snapin/internal/state"
)

// Publisher pushes a batch of items to a repo queue.
type Publisher interface {
	Publish(ctx context.Context, syncUnit, repo, requestID string, items []any) (string, error)
}

// Deduper remembers pushed item IDs per sync unit.
type Deduper interface {
	IsNew(ctx context.Context, scope, id string) (bool, error)
	Reset(ctx context.Context, scope string) (int, error)
}

// Adapter implements extraction.Adapter for one invocation.
type Adapter struct {
	ev        *models.Envelope
	syncUnit  string
	runScope  string
	now       func() time.Time
	emitter   *Emitter
	publisher Publisher
	dedup     Deduper
	store     state.Store
	log       *slog.Logger

	mu        sync.Mutex
	st        *state.State
	repos     map[string]*repo
	artifacts []models.Artifact
	emitted   models.LifecycleEventType
}

// Options configures an Adapter. Dedup may be nil.
type Options struct {
	Emitter   *Emitter
	Publisher Publisher
	Dedup     Deduper
	Store     state.Store
	Logger    *slog.Logger
}

// NewAdapter creates an adapter for ev.
func NewAdapter(ev *models.Envelope, opts Options) *Adapter {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = NewEmitter(nil)
	}
	store := opts.Store
	if store == nil {
		store = state.NewMemoryStore()
	}
	return &Adapter{
		ev:        ev,
		syncUnit:  SyncUnitKey(ev),
		runScope:  RunScope(ev),
		now:       time.Now,
		emitter:   emitter,
		publisher: opts.Publisher,
		dedup:     opts.Dedup,
		store:     store,
		log:       log,
		st:        state.New(),
		repos:     make(map[string]*repo),
	}
}

// SyncUnitKey picks the identifier state and dedup are scoped by.
func SyncUnitKey(ev *models.Envelope) string {
	if ev == nil || ev.Payload == nil {
		return "default"
	}
	c := ev.Payload.EventContext
	for _, id := range []string{c.SyncUnitID, c.SyncUnit, c.ExternalSyncUnitID} {
		if id != "" {
			return id
		}
	}
	return "default"
}

// RunScope namespaces dedup memory by sync unit and, when the platform
// supplies one, by sync run.
func RunScope(ev *models.Envelope) string {
	unit := SyncUnitKey(ev)
	if ev == nil || ev.Payload == nil || ev.Payload.EventContext.SyncRunID == "" {
		return unit
	}
	return unit + ":" + ev.Payload.EventContext.SyncRunID
}

func (a *Adapter) Event() *models.Envelope { return a.ev }

// InitializeRepos declares the repos a phase will push to.
func (a *Adapter) InitializeRepos(names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, n := range names {
		if _, ok := a.repos[n]; !ok {
			a.repos[n] = &repo{name: n, adapter: a}
		}
	}
}

// Repo returns a declared repo, or nil.
func (a *Adapter) Repo(name string) extraction.Repo {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.repos[name]
	if !ok {
		return nil
	}
	return r
}

// Emit sends a lifecycle event. Only the first successful emit of an
// invocation is delivered; later ones are logged and dropped.
func (a *Adapter) Emit(ctx context.Context, t models.LifecycleEventType, data *models.EventData) error {
	a.mu.Lock()
	if a.emitted != "" {
		prev := a.emitted
		a.mu.Unlock()
		a.log.Warn("lifecycle event already emitted, dropping", "event_type", t, "previous", prev)
		return nil
	}
	a.emitted = t
	if data == nil && len(a.artifacts) > 0 {
		data = &models.EventData{}
	}
	if data != nil && data.Error == nil && len(data.Artifacts) == 0 {
		data.Artifacts = append([]models.Artifact(nil), a.artifacts...)
	}
	a.mu.Unlock()

	ev := models.LifecycleEvent{EventType: t, EventData: data}
	if a.ev.Payload != nil {
		ev.EventContext = a.ev.Payload.EventContext
	}

	if err := a.emitter.Send(ctx, a.ev.CallbackURL(), a.ev.ServiceAccountToken(), ev); err != nil {
		a.log.Error("emit lifecycle event failed", "event_type", t, "error", err)
		a.mu.Lock()
		a.emitted = ""
		a.mu.Unlock()
		return err
	}
	a.log.Info("emitted lifecycle event", "event_type", t, "sync_unit", a.syncUnit)
	return nil
}

// Emitted returns the event type delivered so far, or "".
func (a *Adapter) Emitted() models.LifecycleEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emitted
}

func (a *Adapter) Done(repo string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st.Done(repo)
}

func (a *Adapter) MarkDone(repo string, pushed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.st.MarkDone(repo, pushed)
}

// Restart begins a fresh pass over repos: their progress is cleared, the
// sync start time recorded and the run's dedup memory for them dropped.
func (a *Adapter) Restart(ctx context.Context, repos ...string) error {
	a.mu.Lock()
	for _, r := range repos {
		delete(a.st.Repos, r)
	}
	a.st.LastSyncStarted = a.now().UTC().Format(time.RFC3339)
	a.mu.Unlock()

	if a.dedup == nil {
		return nil
	}
	for _, r := range repos {
		if _, err := a.dedup.Reset(ctx, a.runScope+":"+r); err != nil {
			return fmt.Errorf("reset %s dedup: %w", r, err)
		}
	}
	return nil
}

// Reset drops stored state and dedup memory for the sync unit.
func (a *Adapter) Reset(ctx context.Context) error {
	if err := a.store.Delete(ctx, a.syncUnit); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	if a.dedup != nil {
		if _, err := a.dedup.Reset(ctx, a.syncUnit); err != nil {
			return err
		}
	}
	a.mu.Lock()
	a.st = state.New()
	a.mu.Unlock()
	return nil
}

// LoadState reads the sync unit's stored state.
func (a *Adapter) LoadState(ctx context.Context) error {
	st, err := a.store.Load(ctx, a.syncUnit)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.st = st
	a.mu.Unlock()
	return nil
}

// SaveState writes the current state back.
func (a *Adapter) SaveState(ctx context.Context) error {
	a.mu.Lock()
	st := *a.st
	repos := make(map[string]state.Progress, len(a.st.Repos))
	for k, v := range a.st.Repos {
		repos[k] = v
	}
	st.Repos = repos
	a.mu.Unlock()
	return a.store.Save(ctx, a.syncUnit, &st)
}

// repo pushes through the adapter's publisher, dropping items already
// pushed for the sync unit.
type repo struct {
	name    string
	adapter *Adapter
}

func (r *repo) Push(ctx context.Context, items []models.Item) (int, error) {
	a := r.adapter
	if a.publisher == nil {
		return 0, fmt.Errorf("repo %s: no publisher configured", r.name)
	}

	fresh := make([]any, 0, len(items))
	for _, item := range items {
		if a.dedup != nil {
			isNew, err := a.dedup.IsNew(ctx, a.runScope, r.name+":"+item.ItemID())
			if err != nil {
				return 0, err
			}
			if !isNew {
				continue
			}
		}
		fresh = append(fresh, item)
	}

	requestID := ""
	if a.ev.Payload != nil {
		requestID = a.ev.Payload.EventContext.RequestID
	}
	batchID, err := a.publisher.Publish(ctx, a.syncUnit, r.name, requestID, fresh)
	if err != nil {
		return 0, err
	}

	if batchID != "" {
		a.mu.Lock()
		a.artifacts = append(a.artifacts, models.Artifact{ID: batchID, ItemType: r.name, ItemCount: len(fresh)})
		a.mu.Unlock()
		metrics.ItemsPushedTotal.WithLabelValues(r.name).Add(float64(len(fresh)))
	}

	a.log.Debug("pushed items", "repo", r.name, "received", len(items), "pushed", len(fresh))
	return len(fresh), nil
}
