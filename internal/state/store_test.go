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

package state

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// exerciseStore runs the same scenario against any Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	unit := "unit-" + uuid.NewString()

	st, err := s.Load(ctx, unit)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if st.Done("tasks") {
		t.Fatal("fresh state should have nothing done")
	}

	st.MarkDone("users", 3)
	st.LastSyncStarted = "2026-01-01T00:00:00Z"
	if err := s.Save(ctx, unit, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	st.MarkDone("tasks", 9)

	got, err := s.Load(ctx, unit)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Done("users") || got.Repos["users"].Pushed != 3 {
		t.Errorf("users progress = %+v", got.Repos["users"])
	}
	if got.Done("tasks") {
		t.Error("tasks should not be done in the stored copy")
	}
	if got.LastSyncStarted != "2026-01-01T00:00:00Z" {
		t.Errorf("last_sync_started = %q", got.LastSyncStarted)
	}

	if err := s.Delete(ctx, unit); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.Load(ctx, unit)
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if len(got.Repos) != 0 {
		t.Errorf("state should be empty after delete, got %+v", got.Repos)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

// TestPostgresStore needs a real database; it is skipped unless
// TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	s, err := NewPostgresStore(ctx, pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	exerciseStore(t, s)

	if _, err := s.PruneOlderThan(ctx, 0); err != nil {
		t.Errorf("prune: %v", err)
	}
}

func TestDecode_NilRepos(t *testing.T) {
	st, err := decode([]byte(`{"last_sync_started":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st.MarkDone("tasks", 1)
	if !st.Done("tasks") {
		t.Error("MarkDone on decoded state should work")
	}

	if _, err := decode([]byte(`{`)); err == nil {
		t.Error("expected decode error")
	}
}
