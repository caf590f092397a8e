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

// Package db is the Aggregator's structured storage: the canonical
// blocklist and the per-bundle box, device and client report rows.
package db

import (
	"context"
	"time"

	"github.com/carverauto/threatmesh/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/threatmesh/pkg/db Service

// Service is implemented by the SQLite and Postgres stores.
type Service interface {
	Close() error

	// Blocklist operations.

	ActiveBlockList(ctx context.Context) ([]string, error)
	ListBlockList(ctx context.Context) ([]models.BlockListEntry, error)
	CountBlockList(ctx context.Context) (int, error)
	// UpsertBlockListEntry adds an address or rewrites an existing row.
	UpsertBlockListEntry(ctx context.Context, entry *models.BlockListEntry) error
	DeactivateBlockListEntry(ctx context.Context, address string) (bool, error)

	// Telemetry operations.

	// StoreBundle writes the box report, device rows and client reports of
	// one bundle in a single transaction. Reports are appended, never merged.
	StoreBundle(ctx context.Context, bundle *models.TelemetryBundle) error
	RecentDevices(ctx context.Context, boxCode string, limit int) ([]models.DeviceObservation, error)
	BoxSummary(ctx context.Context, boxCode string, since time.Time) (*models.BoxSummary, error)
}
