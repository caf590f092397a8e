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

// Package aggregator is the central service: it owns the canonical
// blocklist and ingests telemetry bundles pushed by Edge Agents.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/threatmesh/pkg/db"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	seedReason      = "example entry"
	deviceListLimit = 50
	summaryHistory  = 7 * 24 * time.Hour
	msgStored       = "telemetry stored"
	msgArchiveOnly  = "stored in archive only"
)

var seedAddresses = []string{"192.168.1.100", "10.0.0.25", "8.8.8.8"}

// IngestResult reports where a bundle ended up.
type IngestResult struct {
	ArchiveKey string
	Structured bool
}

func (r IngestResult) Message() string {
	if r.Structured {
		return msgStored
	}

	return msgArchiveOnly
}

type Aggregator struct {
	db       db.Service
	archive  *Archive
	registry *prometheus.Registry
	metrics  *metrics.Aggregator
	logger   logger.Logger
}

func New(store db.Service, archive *Archive, reg *prometheus.Registry, log logger.Logger) (*Aggregator, error) {
	if store == nil {
		return nil, errDBRequired
	}

	if archive == nil {
		return nil, errArchiveRequired
	}

	if reg == nil {
		reg = metrics.NewRegistry()
	}

	return &Aggregator{
		db:       store,
		archive:  archive,
		registry: reg,
		metrics:  metrics.NewAggregator(reg),
		logger:   log,
	}, nil
}

// GetBlockList returns every active address.
func (a *Aggregator) GetBlockList(ctx context.Context) ([]string, error) {
	addrs, err := a.db.ActiveBlockList(ctx)
	if err != nil {
		return nil, err
	}

	a.metrics.BlockListSize.Set(float64(len(addrs)))

	return addrs, nil
}

// SubmitTelemetry archives body and then records the decoded bundle in
// structured storage. The bundle is accepted once the archive write
// succeeds; a structured storage failure only downgrades the result.
func (a *Aggregator) SubmitTelemetry(ctx context.Context, body []byte, bundle *models.TelemetryBundle) (IngestResult, error) {
	if err := bundle.Validate(); err != nil {
		return IngestResult{}, err
	}

	key, err := a.archive.Put(ctx, bundle.BoxCode, body)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{ArchiveKey: key, Structured: true}

	if err := a.db.StoreBundle(ctx, bundle); err != nil {
		result.Structured = false

		a.metrics.StoreFailures.Inc()
		a.logger.Error().Err(err).
			Str("box_code", bundle.BoxCode).
			Str("archive_key", key).
			Msg("Structured storage failed, bundle kept in archive only")
	}

	storage := "structured"
	if !result.Structured {
		storage = "archive_only"
	}

	a.metrics.BundlesIngested.WithLabelValues(storage).Inc()

	a.logger.Info().
		Str("box_code", bundle.BoxCode).
		Int("devices", len(bundle.Devices)).
		Int("client_reports", len(bundle.ClientReports)).
		Str("storage", storage).
		Msg("Telemetry bundle accepted")

	return result, nil
}

// DecodeBundle parses a raw bundle body.
func DecodeBundle(body []byte) (*models.TelemetryBundle, error) {
	var bundle models.TelemetryBundle

	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	return &bundle, nil
}

func (a *Aggregator) Devices(ctx context.Context, boxCode string) ([]models.DeviceObservation, error) {
	return a.db.RecentDevices(ctx, boxCode, deviceListLimit)
}

func (a *Aggregator) Summary(ctx context.Context, boxCode string) (*models.BoxSummary, error) {
	return a.db.BoxSummary(ctx, boxCode, time.Now().Add(-summaryHistory))
}

func (a *Aggregator) Bundles(ctx context.Context, boxCode string) ([]string, error) {
	return a.archive.Keys(ctx, boxCode)
}

// AddBlockListEntry activates address, creating it if needed.
func (a *Aggregator) AddBlockListEntry(ctx context.Context, address, reason string) (*models.BlockListEntry, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidAddress, address)
	}

	entry := &models.BlockListEntry{
		Address:   addr.Unmap().String(),
		Reason:    reason,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.db.UpsertBlockListEntry(ctx, entry); err != nil {
		return nil, err
	}

	a.logger.Info().Str("address", entry.Address).Str("reason", reason).Msg("Blocklist entry added")

	return entry, nil
}

// RemoveBlockListEntry deactivates address. The row is kept.
func (a *Aggregator) RemoveBlockListEntry(ctx context.Context, address string) error {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return fmt.Errorf("%w: %q", errInvalidAddress, address)
	}

	removed, err := a.db.DeactivateBlockListEntry(ctx, addr.Unmap().String())
	if err != nil {
		return err
	}

	if !removed {
		return errEntryNotFound
	}

	a.logger.Info().Str("address", addr.String()).Msg("Blocklist entry deactivated")

	return nil
}

// SeedExamples fills an empty blocklist with a few example entries.
func (a *Aggregator) SeedExamples(ctx context.Context) error {
	n, err := a.db.CountBlockList(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		return nil
	}

	now := time.Now().UTC()

	for _, addr := range seedAddresses {
		if err := a.db.UpsertBlockListEntry(ctx, &models.BlockListEntry{
			Address:   addr,
			Reason:    seedReason,
			Active:    true,
			CreatedAt: now,
		}); err != nil {
			return err
		}
	}

	a.logger.Info().Int("entries", len(seedAddresses)).Msg("Seeded example blocklist entries")

	return nil
}
