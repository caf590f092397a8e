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

package edge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/carverauto/threatmesh/pkg/kv"
)

// IdentityKey is where the Edge Agent identity token is persisted.
const IdentityKey = "identity"

// IdentityStore issues the Edge Agent identity once and returns the same
// value on every later call, across restarts.
type IdentityStore struct {
	mu    sync.Mutex
	store kv.KVStore
	value string
	// newID is replaced in tests.
	newID func() string
}

func NewIdentityStore(store kv.KVStore) *IdentityStore {
	return &IdentityStore{store: store, newID: uuid.NewString}
}

// Ensure returns the persisted identity, creating it on first use.
func (s *IdentityStore) Ensure(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != "" {
		return s.value, nil
	}

	raw, found, err := s.store.Get(ctx, IdentityKey)
	if err != nil {
		return "", fmt.Errorf("failed to read identity: %w", err)
	}

	if found {
		if id := strings.TrimSpace(string(raw)); id != "" {
			s.value = id
			return id, nil
		}
	}

	id := s.newID()
	if err := s.store.Put(ctx, IdentityKey, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to persist identity: %w", err)
	}

	s.value = id

	return id, nil
}

// Value returns the identity loaded by Ensure, or "" before that.
func (s *IdentityStore) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value
}
