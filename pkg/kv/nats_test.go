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

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestNatsStore(t *testing.T) {
	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := New(ctx, &Config{Backend: BackendNATS, NATSURL: srv.ClientURL(), Bucket: "edge"})
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	_, found, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "identity", []byte("box-1")))
	require.NoError(t, store.Put(ctx, "archive.box-1.1", []byte("{}")))
	require.NoError(t, store.Put(ctx, "archive.box-1.2", []byte("{}")))

	value, found, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("box-1"), value)

	keys, err := store.Keys(ctx, "archive.")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive.box-1.1", "archive.box-1.2"}, keys)

	require.NoError(t, store.Delete(ctx, "identity"))

	_, found, err = store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.False(t, found)
}
