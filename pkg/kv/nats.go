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
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const natsConnectTimeout = 5 * time.Second

// NatsStore keeps snapshots in a JetStream key/value bucket with a history
// of one, so each Put replaces the previous document.
type NatsStore struct {
	nc     *nats.Conn
	bucket jetstream.KeyValue
}

func NewNatsStore(ctx context.Context, natsURL, bucket string, ttl time.Duration) (*NatsStore, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("threatmesh-kv"),
		nats.Timeout(natsConnectTimeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "threatmesh local state",
		History:     1,
		TTL:         ttl,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	return &NatsStore{nc: nc, bucket: kv}, nil
}

func (n *NatsStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := n.bucket.Get(ctx, key)

	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	default:
		return entry.Value(), true, nil
	}
}

func (n *NatsStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := n.bucket.Put(ctx, key, value); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	return nil
}

// Delete purges key so no tombstone lingers in listings.
func (n *NatsStore) Delete(ctx context.Context, key string) error {
	if err := n.bucket.Purge(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

func (n *NatsStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := n.bucket.ListKeys(ctx, jetstream.IgnoreDeletes())
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	var keys []string

	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Close drains pending publishes before closing the connection.
func (n *NatsStore) Close() error {
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return err
	}

	return nil
}

var _ KVStore = (*NatsStore)(nil)
