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

// Package edge implements the Edge Agent: it inventories the local subnet,
// proxies the canonical blocklist to Monitor Agents, queues their reports,
// and pushes telemetry to the Aggregator.
package edge

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/threatmesh/pkg/blocklist"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/models"
)

//go:generate mockgen -destination=mock_edge.go -package=edge github.com/carverauto/threatmesh/pkg/edge Scanner,Upstream,ProfileSource

// Scanner produces the device inventory of a subnet.
type Scanner interface {
	Scan(ctx context.Context, profile models.NetworkProfile) ([]models.Device, error)
}

// Upstream is the Aggregator as seen from the Edge Agent.
type Upstream interface {
	FetchBlockList(ctx context.Context) ([]string, error)
	SubmitTelemetry(ctx context.Context, bundle *models.TelemetryBundle) error
}

// ProfileSource reports the host's current network attachment.
type ProfileSource interface {
	Resolve() models.NetworkProfile
}

// Deps are the collaborators of an Agent. Latency and PublicIP are
// optional; without them the bundle carries nulls.
type Deps struct {
	Scanner  Scanner
	Upstream Upstream
	Profiles ProfileSource
	Latency  LatencyProber
	PublicIP PublicIPSource
	Registry *prometheus.Registry
}

// Agent holds the Edge Agent state. It is safe for concurrent use by the
// HTTP handlers and the background tasks.
type Agent struct {
	cfg       *Config
	identity  *IdentityStore
	blocklist *blocklist.Store
	inventory *Inventory
	queue     *ReportQueue
	deps      Deps
	metrics   *metrics.Edge
	logger    logger.Logger
	now       func() time.Time
}

// NewAgent builds an Agent whose identity, caches and report queue live in
// store. Call Init before serving.
func NewAgent(cfg *Config, store kv.KVStore, deps Deps, log logger.Logger) (*Agent, error) {
	if store == nil {
		return nil, errKVRequired
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	if deps.Registry == nil {
		deps.Registry = metrics.NewRegistry()
	}

	return &Agent{
		cfg:       cfg,
		identity:  NewIdentityStore(store),
		blocklist: blocklist.New(store),
		inventory: NewInventory(store),
		queue:     NewReportQueue(store),
		deps:      deps,
		metrics:   metrics.NewEdge(deps.Registry),
		logger:    log,
		now:       time.Now,
	}, nil
}

// Init establishes the identity and restores persisted snapshots. Missing
// snapshots start empty.
func (a *Agent) Init(ctx context.Context) error {
	id, err := a.identity.Ensure(ctx)
	if err != nil {
		return err
	}

	if err := a.inventory.Load(ctx); err != nil {
		return err
	}

	if _, err := a.blocklist.Load(ctx); err != nil {
		return fmt.Errorf("failed to load blocklist cache: %w", err)
	}

	if err := a.queue.Load(ctx); err != nil {
		return err
	}

	a.metrics.BlockListSize.Set(float64(a.blocklist.Len()))
	a.metrics.DevicesFound.Set(float64(len(a.inventory.Snapshot().Devices)))
	a.metrics.ReportsQueued.Set(float64(a.queue.Len()))

	a.logger.Info().
		Str("identity", id).
		Int("blocklist_entries", a.blocklist.Len()).
		Int("queued_reports", a.queue.Len()).
		Msg("Edge agent state restored")

	return nil
}

// Identity returns the identity token and the display name served to
// Monitor Agents.
func (a *Agent) Identity() (id, displayName string) {
	return a.identity.Value(), a.cfg.DeviceName
}

// BlockList returns the cached list. It never calls upstream.
func (a *Agent) BlockList() []string {
	return a.blocklist.List()
}

func (a *Agent) Devices() models.DeviceSnapshot {
	return a.inventory.Snapshot()
}

// SubmitClientReport validates r, stamps the receive time and queues it.
// The report is persisted before this returns nil.
func (a *Agent) SubmitClientReport(ctx context.Context, r *models.ClientReport) error {
	if err := r.Validate(); err != nil {
		a.metrics.ReportsIn.WithLabelValues("invalid").Inc()
		return err
	}

	r.Timestamp = a.now().UTC()

	if err := a.queue.Append(ctx, *r); err != nil {
		a.metrics.ReportsIn.WithLabelValues(metrics.ResultFail).Inc()
		return err
	}

	a.metrics.ReportsIn.WithLabelValues(metrics.ResultOK).Inc()
	a.metrics.ReportsQueued.Set(float64(a.queue.Len()))

	a.logger.Debug().
		Str("client", r.Name).
		Str("client_ip", r.IPPriv).
		Int64("threats_detected", r.ThreatsDetected).
		Int64("ips_blocked", r.IPsBlocked).
		Msg("Client report queued")

	return nil
}

// RefreshBlockList pulls the canonical list. On failure the previous list
// stays in service.
func (a *Agent) RefreshBlockList(ctx context.Context) error {
	addrs, err := a.deps.Upstream.FetchBlockList(ctx)
	a.metrics.BlockListPulls.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		a.logger.Warn().
			Err(err).
			Int("cached_entries", a.blocklist.Len()).
			Msg("Blocklist refresh failed, keeping cached list")

		return fmt.Errorf("blocklist refresh: %w", err)
	}

	if skipped := a.blocklist.Replace(addrs, a.now().UTC()); len(skipped) > 0 {
		a.logger.Warn().Strs("skipped", skipped).Msg("Ignoring malformed blocklist entries")
	}

	a.metrics.BlockListSize.Set(float64(a.blocklist.Len()))

	if err := a.blocklist.Persist(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to persist blocklist cache")
	}

	a.logger.Info().Int("entries", a.blocklist.Len()).Msg("Blocklist refreshed")

	return nil
}

// ScanAndPush refreshes the inventory and pushes a telemetry bundle. A
// failed scan keeps the previous inventory; queued reports are dropped
// only after the Aggregator accepted them.
func (a *Agent) ScanAndPush(ctx context.Context) error {
	profile := a.deps.Profiles.Resolve()

	a.scan(ctx, profile)

	return a.push(ctx, profile)
}

func (a *Agent) scan(ctx context.Context, profile models.NetworkProfile) {
	start := a.now()

	devices, err := a.deps.Scanner.Scan(ctx, profile)
	a.metrics.Scans.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("subnet", profile.Subnet.String()).
			Msg("Network scan failed, keeping previous inventory")

		return
	}

	if err := a.inventory.Replace(ctx, devices, a.now()); err != nil {
		a.logger.Error().Err(err).Msg("Failed to save device inventory")
	}

	a.metrics.DevicesFound.Set(float64(len(devices)))

	a.logger.Info().
		Str("subnet", profile.Subnet.String()).
		Int("devices", len(devices)).
		Dur("elapsed", a.now().Sub(start)).
		Msg("Network scan completed")
}

func (a *Agent) push(ctx context.Context, profile models.NetworkProfile) error {
	pending := a.queue.Pending()
	bundle := a.buildBundle(ctx, profile, pending)

	err := a.deps.Upstream.SubmitTelemetry(ctx, bundle)
	a.metrics.Pushes.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		a.logger.Warn().
			Err(err).
			Int("queued_reports", len(pending)).
			Msg("Telemetry push failed, reports stay queued")

		return fmt.Errorf("telemetry push: %w", err)
	}

	if err := a.queue.Drain(ctx, len(pending)); err != nil {
		a.logger.Error().Err(err).Msg("Failed to persist drained report queue")
	}

	a.metrics.ReportsQueued.Set(float64(a.queue.Len()))

	a.logger.Info().
		Int("devices", len(bundle.Devices)).
		Int("client_reports", len(pending)).
		Msg("Telemetry pushed")

	return nil
}

func (a *Agent) buildBundle(ctx context.Context, profile models.NetworkProfile, reports []models.ClientReport) *models.TelemetryBundle {
	box := models.BoxData{
		DeviceName: a.cfg.DeviceName,
		IPPrivate:  profile.Address.String(),
		MACAddress: profile.MAC,
	}

	if a.deps.PublicIP != nil {
		if ip, err := a.deps.PublicIP.Lookup(ctx); err != nil {
			a.logger.Debug().Err(err).Msg("Public IP unavailable")
		} else {
			box.IPPublic = &ip
		}
	}

	if a.deps.Latency != nil {
		if rtt, err := a.deps.Latency.Measure(ctx, profile.Gateway); err != nil {
			a.logger.Debug().Err(err).Str("gateway", profile.Gateway.String()).Msg("Gateway latency unavailable")
		} else {
			ms := float64(rtt.Microseconds()) / 1000
			box.Latency = &ms
			a.metrics.LatencyMillis.Set(ms)
		}
	}

	if reports == nil {
		reports = []models.ClientReport{}
	}

	return &models.TelemetryBundle{
		BoxCode:       a.identity.Value(),
		Timestamp:     a.now().UTC(),
		BoxData:       box,
		Devices:       a.inventory.Snapshot().Devices,
		ClientReports: reports,
	}
}
