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
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, found, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "identity", []byte("abc")))

	value, found, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("abc"), value)

	require.NoError(t, store.Put(ctx, "identity", []byte("def")))

	value, _, err = store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.Equal(t, []byte("def"), value)

	require.NoError(t, store.Delete(ctx, "identity"))
	require.NoError(t, store.Delete(ctx, "identity"))

	_, found, err = store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStoreNestedKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewFileStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "archive/box-1/002", []byte("b")))
	require.NoError(t, store.Put(ctx, "archive/box-1/001", []byte("a")))
	require.NoError(t, store.Put(ctx, "archive/box-2/001", []byte("c")))
	require.NoError(t, store.Put(ctx, "blocklist", []byte("d")))

	keys, err := store.Keys(ctx, "archive/box-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive/box-1/001", "archive/box-1/002"}, keys)

	assert.FileExists(t, filepath.Join(root, "archive", "box-2", "001"))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewFileStore(root)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, "reports", []byte(`{"reports":[]}`)))
		}()
	}

	wg.Wait()

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reports", entries[0].Name())
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside"} {
		err := store.Put(context.Background(), key, []byte("x"))
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	type doc struct {
		IPs []string `json:"ips"`
	}

	var out doc

	found, err := GetJSON(ctx, store, "blocklist", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, PutJSON(ctx, store, "blocklist", doc{IPs: []string{"8.8.8.8"}}))

	found, err = GetJSON(ctx, store, "blocklist", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"8.8.8.8"}, out.IPs)

	require.NoError(t, store.Put(ctx, "broken", []byte("{")))

	_, err = GetJSON(ctx, store, "broken", &out)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Path: "/tmp/x"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendFile, cfg.Backend)

	require.ErrorIs(t, (&Config{}).Validate(), errPathRequired)
	require.ErrorIs(t, (&Config{Backend: BackendNATS}).Validate(), errNatsURLRequired)
	require.ErrorIs(t, (&Config{Backend: BackendRedis}).Validate(), errRedisAddrRequired)
	require.ErrorIs(t, (&Config{Backend: "etcd"}).Validate(), errUnknownBackend)

	natsCfg := &Config{Backend: BackendNATS, NATSURL: "nats://localhost:4222"}
	require.NoError(t, natsCfg.Validate())
	assert.Equal(t, defaultBucket, natsCfg.Bucket)
}
