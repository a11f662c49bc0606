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

// Package dedup remembers which records have already been pushed for a
// sync unit, so a CONTINUE phase that re-fetches a page does not push the
// same item twice.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a pushed item ID is remembered. Sync runs
	// finish well inside this window.
	DefaultTTL = 24 * time.Hour

	keySegment = "seen"
)

// Filter tracks pushed item IDs per scope.
type Filter struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewFilter creates a dedup filter backed by Redis. Keys are namespaced
// under prefix.
func NewFilter(rdb *redis.Client, prefix string) *Filter {
	return &Filter{
		rdb:    rdb,
		ttl:    DefaultTTL,
		prefix: prefix,
	}
}

func (f *Filter) key(scope, id string) string {
	return fmt.Sprintf("%s:%s:%s:%s", f.prefix, keySegment, scope, id)
}

// IsNew returns true if id has NOT been seen in scope before, and marks
// it as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, scope, id string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, f.key(scope, id), 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Reset forgets every ID recorded for scope and returns how many keys
// were removed. Keys are collected before deletion so the SCAN cursor is
// not disturbed.
func (f *Filter) Reset(ctx context.Context, scope string) (int, error) {
	var keys []string
	iter := f.rdb.Scan(ctx, 0, f.key(scope, "*"), 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("dedup SCAN: %w", err)
	}

	var removed int
	for start := 0; start < len(keys); start += 200 {
		end := min(start+200, len(keys))
		n, err := f.rdb.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("dedup DEL: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}
