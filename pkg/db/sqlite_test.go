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

package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "threatmesh.db"), logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func ptr[T any](v T) *T { return &v }

func TestOpenSQLiteMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "threatmesh.db")

	first, err := OpenSQLite(ctx, path, logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, first.UpsertBlockListEntry(ctx, &models.BlockListEntry{Address: "10.0.0.25", Active: true}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path, logger.NewTestLogger())
	require.NoError(t, err)

	defer func() { _ = second.Close() }()

	n, err := second.CountBlockList(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestBlockListLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	active, err := store.ActiveBlockList(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.NotNil(t, active)

	require.NoError(t, store.UpsertBlockListEntry(ctx, &models.BlockListEntry{Address: "8.8.8.8", Reason: "resolver", Active: true}))
	require.NoError(t, store.UpsertBlockListEntry(ctx, &models.BlockListEntry{Address: "10.0.0.25", Active: true}))

	// A second upsert rewrites the reason rather than adding a row.
	require.NoError(t, store.UpsertBlockListEntry(ctx, &models.BlockListEntry{Address: "8.8.8.8", Reason: "updated", Active: true}))

	active, err = store.ActiveBlockList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.25", "8.8.8.8"}, active)

	removed, err := store.DeactivateBlockListEntry(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeactivateBlockListEntry(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.False(t, removed)

	active, err = store.ActiveBlockList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.25"}, active)

	entries, err := store.ListBlockList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "8.8.8.8", entries[1].Address)
	assert.Equal(t, "updated", entries[1].Reason)
	assert.False(t, entries[1].Active)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestUpsertRequiresAddress(t *testing.T) {
	store := openTestStore(t)

	err := store.UpsertBlockListEntry(context.Background(), &models.BlockListEntry{})
	require.ErrorIs(t, err, ErrAddressRequired)
}

func TestStoreBundleAndReadBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	bundle := &models.TelemetryBundle{
		BoxCode:   "box-123",
		Timestamp: at,
		BoxData: models.BoxData{
			DeviceName: "edge-1",
			IPPrivate:  "192.168.1.2",
			IPPublic:   ptr("203.0.113.9"),
			MACAddress: "aa:bb:cc:dd:ee:ff",
			Latency:    ptr(1.25),
		},
		Devices: []models.Device{
			{Name: "printer", IP: "192.168.1.20", MAC: "00:11:22:33:44:55"},
			{Name: "laptop", IP: "192.168.1.21", MAC: "00:11:22:33:44:56"},
		},
		ClientReports: []models.ClientReport{
			{Name: "pc-1", IPPriv: "192.168.1.21", MAC: "00:11:22:33:44:56", ThreatsDetected: 3, IPsBlocked: 2, Timestamp: at.Add(-time.Minute)},
			{Name: "pc-1", IPPriv: "192.168.1.21", MAC: "00:11:22:33:44:56", ThreatsDetected: 1, IPsBlocked: 1},
		},
	}

	require.NoError(t, store.StoreBundle(ctx, bundle))

	devices, err := store.RecentDevices(ctx, "box-123", 50)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, at, devices[0].Timestamp)

	summary, err := store.BoxSummary(ctx, "box-123", at.Add(-7*24*time.Hour))
	require.NoError(t, err)

	require.NotNil(t, summary.BoxInfo)
	assert.Equal(t, "edge-1", summary.BoxInfo.DeviceName)
	require.NotNil(t, summary.BoxInfo.IPPublic)
	assert.Equal(t, "203.0.113.9", *summary.BoxInfo.IPPublic)
	require.NotNil(t, summary.BoxInfo.Latency)
	assert.InDelta(t, 1.25, *summary.BoxInfo.Latency, 0.001)

	assert.Equal(t, models.SecurityTotals{TotalReports: 2, TotalThreats: 4, TotalBlocked: 3}, summary.Security)

	require.NotNil(t, summary.LastUpdate)
	assert.Equal(t, at, *summary.LastUpdate)

	require.Len(t, summary.Clients, 1)
	assert.Equal(t, int64(4), summary.Clients[0].ThreatsDetected)
	assert.Equal(t, at, summary.Clients[0].LastReport)

	require.Len(t, summary.History, 1)
	assert.Equal(t, models.DailyThreats{Date: "2025-03-04", ThreatsDetected: 4, IPsBlocked: 3}, summary.History[0])
}

func TestStoreBundleAppendsReports(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	day1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	for _, at := range []time.Time{day1, day2} {
		require.NoError(t, store.StoreBundle(ctx, &models.TelemetryBundle{
			BoxCode:       "box-9",
			Timestamp:     at,
			ClientReports: []models.ClientReport{{Name: "pc", IPPriv: "10.0.0.2", ThreatsDetected: 2, IPsBlocked: 1}},
		}))
	}

	summary, err := store.BoxSummary(ctx, "box-9", day2.Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Security.TotalReports)
	assert.Equal(t, int64(4), summary.Security.TotalThreats)

	// History only covers days at or after since.
	require.Len(t, summary.History, 1)
	assert.Equal(t, "2025-03-02", summary.History[0].Date)
}

func TestStoreBundleRequiresBoxCode(t *testing.T) {
	store := openTestStore(t)

	err := store.StoreBundle(context.Background(), &models.TelemetryBundle{})
	require.ErrorIs(t, err, ErrBoxCodeRequired)
}

func TestBoxSummaryUnknownBox(t *testing.T) {
	store := openTestStore(t)

	summary, err := store.BoxSummary(context.Background(), "nobody", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.Nil(t, summary.BoxInfo)
	assert.Nil(t, summary.LastUpdate)
	assert.Empty(t, summary.Clients)
	assert.Empty(t, summary.History)
	assert.Equal(t, "nobody", summary.BoxCode)
}

func TestRecentDevicesHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.StoreBundle(ctx, &models.TelemetryBundle{
			BoxCode:   "box-1",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Devices:   []models.Device{{Name: "d", IP: "10.0.0.9"}},
		}))
	}

	devices, err := store.RecentDevices(ctx, "box-1", 2)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, base.Add(2*time.Hour), devices[0].Timestamp)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Path: "/tmp/x.db"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Driver)

	pg := &Config{Driver: DriverPostgres, Host: "db"}
	require.NoError(t, pg.Validate())
	assert.Equal(t, 5432, pg.Port)
	assert.Equal(t, "disable", pg.SSLMode)

	require.ErrorIs(t, (&Config{Driver: DriverPostgres}).Validate(), ErrHostRequired)
	require.ErrorIs(t, (&Config{Driver: "mysql"}).Validate(), ErrUnknownDriver)
	require.ErrorIs(t, (&Config{}).Validate(), ErrPathRequired)
}
