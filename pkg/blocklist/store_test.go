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

package blocklist

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/threatmesh/pkg/kv"
)

func TestEmptyStore(t *testing.T) {
	s := New(nil)

	assert.Equal(t, 0, s.Len())
	assert.NotNil(t, s.List())
	assert.Empty(t, s.List())
	assert.False(t, s.Contains(netip.MustParseAddr("8.8.8.8")))
}

func TestReplace(t *testing.T) {
	s := New(nil)

	skipped := s.Replace([]string{"8.8.8.8", "1.1.1.1", "bogus", "8.8.8.8", "::ffff:9.9.9.9"}, time.Unix(100, 0))

	assert.Equal(t, []string{"bogus"}, skipped)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8", "9.9.9.9"}, s.List())
	assert.True(t, s.Contains(netip.MustParseAddr("8.8.8.8")))
	assert.True(t, s.Contains(netip.MustParseAddr("::ffff:8.8.8.8")))
	assert.Equal(t, time.Unix(100, 0), s.UpdatedAt())

	s.Replace(nil, time.Unix(200, 0))
	assert.False(t, s.Contains(netip.MustParseAddr("8.8.8.8")))
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()

	fs, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := New(fs)

	found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	s.Replace([]string{"8.8.8.8"}, time.Now().UTC())
	require.NoError(t, s.Persist(ctx))

	restored := New(fs)

	found, err = restored.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"8.8.8.8"}, restored.List())
}

func TestPersistPropagatesStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockKV := kv.NewMockKVStore(ctrl)
	mockKV.EXPECT().Put(gomock.Any(), SnapshotKey, gomock.Any()).Return(errors.New("disk full"))

	s := New(mockKV)
	s.Replace([]string{"8.8.8.8"}, time.Now())

	require.Error(t, s.Persist(context.Background()))
	assert.Equal(t, []string{"8.8.8.8"}, s.List(), "in-memory list survives a failed persist")
}

func TestConcurrentReadsDuringReplace(t *testing.T) {
	s := New(nil)
	s.Replace([]string{"8.8.8.8"}, time.Now())

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 1000; j++ {
				list := s.List()
				assert.Contains(t, [][]string{{"8.8.8.8"}, {"1.1.1.1", "8.8.8.8"}}, list)
			}
		}()
	}

	for j := 0; j < 100; j++ {
		if j%2 == 0 {
			s.Replace([]string{"8.8.8.8", "1.1.1.1"}, time.Now())
		} else {
			s.Replace([]string{"8.8.8.8"}, time.Now())
		}
	}

	wg.Wait()
}
