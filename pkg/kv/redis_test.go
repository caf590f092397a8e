/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, mr *miniredis.Miniredis, prefix string) *RedisStore {
	t.Helper()

	store := newRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), prefix)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newTestRedisStore(t, mr, "threatmesh:")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, found, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "identity", []byte("box-1")))
	require.NoError(t, store.Put(ctx, "identity", []byte("box-2")))

	value, found, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("box-2"), value)

	raw, err := mr.Get("threatmesh:identity")
	require.NoError(t, err)
	assert.Equal(t, "box-2", raw)

	require.NoError(t, store.Delete(ctx, "identity"))

	_, found, err = store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "identity"))
}

func TestRedisStoreKeysByPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newTestRedisStore(t, mr, "edge:")
	other := newTestRedisStore(t, mr, "monitor:")

	ctx := context.Background()

	for _, k := range []string{
		"archive/box-1/b.json",
		"archive/box-1/a.json",
		"archive/box-2/a.json",
		"identity",
	} {
		require.NoError(t, store.Put(ctx, k, []byte("{}")))
	}

	require.NoError(t, other.Put(ctx, "archive/box-1/c.json", []byte("{}")))

	keys, err := store.Keys(ctx, "archive/box-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive/box-1/a.json", "archive/box-1/b.json"}, keys)

	all, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := store.Keys(ctx, "missing/")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRedisStoreKeysSpanManyBatches(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newTestRedisStore(t, mr, "")

	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, store.Put(ctx, "archive/box-1/"+time.Unix(int64(i), 0).UTC().Format("150405"), []byte("{}")))
	}

	keys, err := store.Keys(ctx, "archive/")
	require.NoError(t, err)
	require.Len(t, keys, 250)
	assert.IsNonDecreasing(t, keys)
}

func TestNewSelectsRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := New(context.Background(), &Config{Backend: BackendRedis, RedisAddr: mr.Addr(), KeyPrefix: "box:"})
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	require.IsType(t, &RedisStore{}, store)
	require.NoError(t, store.Put(context.Background(), "identity", []byte("box-1")))
	assert.True(t, mr.Exists("box:identity"))
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, &RedisOptions{Addr: addr})
	require.Error(t, err)
}
