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

package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/threatmesh/pkg/kv"
)

const (
	archivePrefix     = "archive/"
	archiveTimeLayout = "20060102T150405.000000000Z"
)

// Archive keeps every accepted bundle body verbatim, one key per bundle,
// grouped by box identity.
type Archive struct {
	store kv.KVStore
	now   func() time.Time
	newID func() string
}

func NewArchive(store kv.KVStore) *Archive {
	return &Archive{store: store, now: time.Now, newID: uuid.NewString}
}

// Put stores body and returns its key.
func (a *Archive) Put(ctx context.Context, boxCode string, body []byte) (string, error) {
	key := fmt.Sprintf("%s%s/%s-%s.json",
		archivePrefix, sanitizeIdentity(boxCode), a.now().UTC().Format(archiveTimeLayout), a.newID())

	if err := a.store.Put(ctx, key, body); err != nil {
		return "", fmt.Errorf("failed to archive bundle: %w", err)
	}

	return key, nil
}

func (a *Archive) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return a.store.Get(ctx, key)
}

// Keys lists archived bundles for one box, oldest first.
func (a *Archive) Keys(ctx context.Context, boxCode string) ([]string, error) {
	keys, err := a.store.Keys(ctx, archivePrefix+sanitizeIdentity(boxCode)+"/")
	if err != nil {
		return nil, err
	}

	if keys == nil {
		keys = []string{}
	}

	return keys, nil
}

// sanitizeIdentity maps an identity onto characters every kv backend accepts
// in a key segment.
func sanitizeIdentity(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
