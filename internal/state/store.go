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

// Package state persists per-sync-unit extraction progress between phase
// invocations, in Postgres or in memory.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Progress records how far a single repo has got.
type Progress struct {
	Completed bool `json:"completed"`
	Pushed    int  `json:"pushed"`
}

// State is the mutable bag a phase worker reads and updates.
type State struct {
	Repos           map[string]Progress `json:"repos"`
	LastSyncStarted string              `json:"last_sync_started,omitempty"`
}

// New returns an empty state.
func New() *State {
	return &State{Repos: map[string]Progress{}}
}

// Done reports whether repo has been fully pushed.
func (s *State) Done(repo string) bool {
	return s.Repos[repo].Completed
}

// MarkDone records that repo finished after pushing n items.
func (s *State) MarkDone(repo string, n int) {
	if s.Repos == nil {
		s.Repos = map[string]Progress{}
	}
	s.Repos[repo] = Progress{Completed: true, Pushed: n}
}

// Store loads and saves state keyed by sync unit.
type Store interface {
	Load(ctx context.Context, syncUnit string) (*State, error)
	Save(ctx context.Context, syncUnit string, st *State) error
	Delete(ctx context.Context, syncUnit string) error
}

// PostgresStore keeps state as JSONB rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by pool. It ensures the
// extraction_state table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure state schema: %w", err)
	}
	slog.Info("extraction state store initialised")
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS extraction_state (
			sync_unit   TEXT PRIMARY KEY,
			state       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at  TIMESTAMPTZ DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_state_updated ON extraction_state(updated_at);
	`)
	return err
}

// Load returns the stored state, or an empty one when none exists.
func (s *PostgresStore) Load(ctx context.Context, syncUnit string) (*State, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT state FROM extraction_state WHERE sync_unit = $1
	`, syncUnit).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return decode(raw)
}

// Save upserts the state for syncUnit.
func (s *PostgresStore) Save(ctx context.Context, syncUnit string, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_state (sync_unit, state)
		VALUES ($1, $2)
		ON CONFLICT (sync_unit) DO UPDATE SET
			state      = EXCLUDED.state,
			updated_at = NOW()
	`, syncUnit, raw)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Delete removes the state for syncUnit.
func (s *PostgresStore) Delete(ctx context.Context, syncUnit string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM extraction_state WHERE sync_unit = $1`, syncUnit)
	return err
}

// PruneOlderThan removes rows untouched for longer than age.
func (s *PostgresStore) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM extraction_state WHERE updated_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(age.Seconds())))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func decode(raw []byte) (*State, error) {
	st := New()
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.Repos == nil {
		st.Repos = map[string]Progress{}
	}
	return st, nil
}
