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

package dedup

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFilter(t *testing.T) (*Filter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewFilter(rdb, "airdrop"), mr
}

func TestIsNew(t *testing.T) {
	f, mr := setupFilter(t)
	ctx := context.Background()

	fresh, err := f.IsNew(ctx, "unit-1", "T1")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = f.IsNew(ctx, "unit-1", "T1")
	require.NoError(t, err)
	assert.False(t, fresh, "second sighting must not be new")

	fresh, err = f.IsNew(ctx, "unit-2", "T1")
	require.NoError(t, err)
	assert.True(t, fresh, "scopes are independent")

	assert.Equal(t, DefaultTTL, mr.TTL("airdrop:seen:unit-1:T1"))
}

func TestIsNew_Expiry(t *testing.T) {
	f, mr := setupFilter(t)
	ctx := context.Background()

	_, err := f.IsNew(ctx, "u", "T1")
	require.NoError(t, err)

	mr.FastForward(DefaultTTL + 1)

	fresh, err := f.IsNew(ctx, "u", "T1")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestReset(t *testing.T) {
	f, _ := setupFilter(t)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		_, err := f.IsNew(ctx, "unit-1", fmt.Sprintf("T%d", i))
		require.NoError(t, err)
	}
	_, err := f.IsNew(ctx, "unit-2", "T0")
	require.NoError(t, err)

	removed, err := f.Reset(ctx, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, 450, removed)

	fresh, err := f.IsNew(ctx, "unit-1", "T0")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = f.IsNew(ctx, "unit-2", "T0")
	require.NoError(t, err)
	assert.False(t, fresh, "other scopes are untouched")
}

func TestIsNew_RedisDown(t *testing.T) {
	f, mr := setupFilter(t)
	mr.Close()

	_, err := f.IsNew(context.Background(), "u", "T1")
	assert.ErrorContains(t, err, "dedup SETNX")
}
