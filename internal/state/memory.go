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
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps state in process. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]byte)}
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(_ context.Context, syncUnit string) (*State, error) {
	m.mu.Lock()
	raw := m.rows[syncUnit]
	m.mu.Unlock()
	return decode(raw)
}

// Save stores a copy of st.
func (m *MemoryStore) Save(_ context.Context, syncUnit string, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	m.mu.Lock()
	m.rows[syncUnit] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, syncUnit string) error {
	m.mu.Lock()
	delete(m.rows, syncUnit)
	m.mu.Unlock()
	return nil
}
