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

// Package blocklist holds the read-mostly cache of blocked addresses used by
// the Edge and Monitor agents.
package blocklist

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync/atomic"
	"time"

	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/models"
)

// SnapshotKey is where the cache is persisted in the local store.
const SnapshotKey = "blocklist"

type set struct {
	addrs     map[netip.Addr]struct{}
	list      []string
	updatedAt time.Time
}

// Store is safe for concurrent use. Readers never block writers: Replace
// swaps the whole set in one atomic store.
type Store struct {
	current atomic.Pointer[set]
	kv      kv.KVStore
}

// New returns an empty store backed by persist. persist may be nil.
func New(persist kv.KVStore) *Store {
	s := &Store{kv: persist}
	s.current.Store(&set{addrs: map[netip.Addr]struct{}{}, list: []string{}})

	return s
}

// Replace installs addrs as the new list. Entries that do not parse as IP
// addresses are skipped and returned.
func (s *Store) Replace(addrs []string, at time.Time) (skipped []string) {
	next := &set{
		addrs:     make(map[netip.Addr]struct{}, len(addrs)),
		list:      make([]string, 0, len(addrs)),
		updatedAt: at,
	}

	for _, raw := range addrs {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}

		addr = addr.Unmap()
		if _, dup := next.addrs[addr]; dup {
			continue
		}

		next.addrs[addr] = struct{}{}
		next.list = append(next.list, addr.String())
	}

	sort.Strings(next.list)
	s.current.Store(next)

	return skipped
}

func (s *Store) Contains(addr netip.Addr) bool {
	_, ok := s.current.Load().addrs[addr.Unmap()]
	return ok
}

// List returns the cached addresses sorted. The slice must not be modified.
func (s *Store) List() []string {
	return s.current.Load().list
}

func (s *Store) Len() int {
	return len(s.current.Load().list)
}

func (s *Store) UpdatedAt() time.Time {
	return s.current.Load().updatedAt
}

// Load restores the persisted snapshot. A missing snapshot leaves the store
// empty and is not an error.
func (s *Store) Load(ctx context.Context) (bool, error) {
	if s.kv == nil {
		return false, nil
	}

	var snap models.BlockListSnapshot

	found, err := kv.GetJSON(ctx, s.kv, SnapshotKey, &snap)
	if err != nil || !found {
		return false, err
	}

	s.Replace(snap.IPs, snap.Timestamp)

	return true, nil
}

// Persist writes the current list as a snapshot document.
func (s *Store) Persist(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}

	cur := s.current.Load()

	snap := models.BlockListSnapshot{Timestamp: cur.updatedAt, IPs: cur.list}
	if err := kv.PutJSON(ctx, s.kv, SnapshotKey, snap); err != nil {
		return fmt.Errorf("failed to persist blocklist: %w", err)
	}

	return nil
}
