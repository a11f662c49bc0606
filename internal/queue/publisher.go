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

// Package queue publishes normalised record batches to Redis lists, one
// list per sync unit and repo. The Airdrop uploader drains these lists.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Batch is one push of records to a repo.
type Batch struct {
	ID          string            `json:"id"`
	SyncUnit    string            `json:"sync_unit"`
	Repo        string            `json:"repo"`
	RequestID   string            `json:"request_id,omitempty"`
	Items       []json.RawMessage `json:"items"`
	PublishedAt string            `json:"published_at"`
}

// Publisher LPUSHes batches to Redis.
type Publisher struct {
	rdb    *redis.Client
	prefix string
}

// NewPublisher creates a publisher whose list keys start with prefix.
func NewPublisher(rdb *redis.Client, prefix string) *Publisher {
	return &Publisher{
		rdb:    rdb,
		prefix: prefix,
	}
}

// Key returns the list key for a sync unit's repo.
func (p *Publisher) Key(syncUnit, repo string) string {
	return fmt.Sprintf("%s:%s:%s", p.prefix, syncUnit, repo)
}

// Publish serialises items into a single batch and pushes it. It returns
// the batch ID. An empty item slice is not published.
func (p *Publisher) Publish(ctx context.Context, syncUnit, repo, requestID string, items []any) (string, error) {
	if len(items) == 0 {
		return "", nil
	}

	raw := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return "", fmt.Errorf("marshal %s item %d: %w", repo, i, err)
		}
		raw = append(raw, b)
	}

	batch := Batch{
		ID:          uuid.New().String(),
		SyncUnit:    syncUnit,
		Repo:        repo,
		RequestID:   requestID,
		Items:       raw,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	}

	msg, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	key := p.Key(syncUnit, repo)
	if err := p.rdb.LPush(ctx, key, string(msg)).Err(); err != nil {
		return "", fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published record batch",
		"batch_id", batch.ID,
		"sync_unit", syncUnit,
		"repo", repo,
		"items", len(raw),
		"queue", key,
	)

	return batch.ID, nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
