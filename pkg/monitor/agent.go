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

// Package monitor implements the Monitor Agent: it finds its Edge Agent,
// keeps a local copy of the blocklist, terminates processes that talk to
// blocked addresses, and reports what it did.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/carverauto/threatmesh/pkg/api"
	"github.com/carverauto/threatmesh/pkg/blocklist"
	"github.com/carverauto/threatmesh/pkg/discovery"
	"github.com/carverauto/threatmesh/pkg/geoip"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/models"
	"github.com/carverauto/threatmesh/pkg/netprofile"
)

// State is the Monitor Agent's relationship with its Edge Agent.
type State int32

const (
	StateDiscovering State = iota
	StateEnforcing
)

func (s State) String() string {
	if s == StateEnforcing {
		return "enforcing"
	}

	return "discovering"
}

// EdgeClient is the Edge Agent API used by the Monitor Agent.
type EdgeClient interface {
	FetchBlockList(ctx context.Context) ([]string, error)
	SubmitReport(ctx context.Context, report *models.ClientReport) error
}

type EdgeLocator interface {
	Locate(ctx context.Context) (*discovery.Edge, error)
}

// Deps are the collaborators of an Agent. Geo, Capture and Registry are
// optional.
type Deps struct {
	Connections ConnectionSource
	Terminator  Terminator
	Locator     EdgeLocator
	Profiles    discovery.ProfileSource
	NewClient   func(baseURL string) (EdgeClient, error)
	Geo         geoip.Lookup
	Capture     CaptureSource
	Registry    *prometheus.Registry
}

// Agent holds the Monitor Agent state.
type Agent struct {
	cfg       *Config
	blocklist *blocklist.Store
	counters  *Counters
	enforcer  *Enforcer
	deps      Deps
	limiter   *rate.Limiter
	metrics   *metrics.Monitor
	logger    logger.Logger
	now       func() time.Time

	mu           sync.Mutex
	state        State
	edge         *discovery.Edge
	client       EdgeClient
	failingSince time.Time

	// captureSeen is only touched by the capture goroutine.
	captureSeen map[netip.Addr]time.Time
}

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

	if deps.Profiles == nil {
		deps.Profiles = netprofile.NewResolver(log)
	}

	if deps.NewClient == nil {
		timeout := cfg.RequestTimeout.Std()
		deps.NewClient = func(baseURL string) (EdgeClient, error) {
			c, err := api.NewClient(baseURL, api.WithTimeout(timeout))
			if err != nil {
				return nil, err
			}

			return c, nil
		}
	}

	m := metrics.NewMonitor(deps.Registry)
	list := blocklist.New(store)
	counters := &Counters{}

	return &Agent{
		cfg:         cfg,
		blocklist:   list,
		counters:    counters,
		enforcer:    NewEnforcer(list, counters, deps.Terminator, deps.Geo, m, log),
		deps:        deps,
		limiter:     rate.NewLimiter(rate.Every(discoveryWindow(cfg.DiscoveryBackoff.Std())), 1),
		metrics:     m,
		logger:      log,
		now:         time.Now,
		captureSeen: make(map[netip.Addr]time.Time),
	}, nil
}

// discoveryWindow is slightly shorter than the backoff so the scheduled
// discover task, which ticks at the backoff interval, is not refused by
// timer jitter.
func discoveryWindow(backoff time.Duration) time.Duration {
	return backoff * 9 / 10
}

// Init restores the cached blocklist and the local network profile.
func (a *Agent) Init(ctx context.Context) error {
	if _, err := a.blocklist.Load(ctx); err != nil {
		return fmt.Errorf("failed to load blocklist cache: %w", err)
	}

	a.metrics.BlockListSize.Set(float64(a.blocklist.Len()))
	a.enforcer.SetProfile(a.deps.Profiles.Resolve())

	a.logger.Info().Int("blocklist_entries", a.blocklist.Len()).Msg("Monitor agent state restored")

	return nil
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

// Edge returns the Edge Agent in use, or nil while discovering.
func (a *Agent) Edge() *discovery.Edge {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.edge
}

func (a *Agent) Counters() *Counters {
	return a.counters
}

// Discover runs discovery when no Edge Agent is known and pulls the
// blocklist from a newly found one.
func (a *Agent) Discover(ctx context.Context) error {
	if a.State() == StateEnforcing {
		return nil
	}

	if _, err := a.connect(ctx); err != nil {
		return err
	}

	return a.RefreshBlockList(ctx)
}

// RefreshBlockList replaces the cached list with the Edge Agent's. On
// failure the cached list stays in force.
func (a *Agent) RefreshBlockList(ctx context.Context) error {
	client, err := a.connect(ctx)
	if err != nil {
		return err
	}

	addrs, err := client.FetchBlockList(ctx)
	a.observe(err)

	if err != nil {
		a.logger.Warn().Err(err).Int("cached_entries", a.blocklist.Len()).Msg("Blocklist refresh failed, keeping cached list")
		return fmt.Errorf("blocklist refresh: %w", err)
	}

	if skipped := a.blocklist.Replace(addrs, a.now().UTC()); len(skipped) > 0 {
		a.logger.Warn().Strs("skipped", skipped).Msg("Ignoring malformed blocklist entries")
	}

	if err := a.blocklist.Persist(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to persist blocklist cache")
	}

	a.metrics.BlockListSize.Set(float64(a.blocklist.Len()))
	a.logger.Info().Int("entries", a.blocklist.Len()).Msg("Blocklist refreshed")

	return nil
}

// SendReport delivers the counters. Delivered amounts are subtracted on
// success; on failure the counters carry forward.
func (a *Agent) SendReport(ctx context.Context) error {
	client, err := a.connect(ctx)
	if err != nil {
		return err
	}

	threats, blocked := a.counters.Snapshot()
	profile := a.deps.Profiles.Resolve()

	report := &models.ClientReport{
		Name:            a.cfg.ClientName,
		IPPriv:          profile.Address.String(),
		MAC:             profile.MAC,
		ThreatsDetected: threats,
		IPsBlocked:      blocked,
		Timestamp:       a.now().UTC(),
	}

	err = client.SubmitReport(ctx, report)
	a.observe(err)
	a.metrics.ReportsSent.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		a.logger.Warn().
			Err(err).
			Int64("threats_detected", threats).
			Int64("ips_blocked", blocked).
			Msg("Report delivery failed, counters carried forward")

		return fmt.Errorf("report delivery: %w", err)
	}

	a.counters.Subtract(threats, blocked)

	a.logger.Info().
		Int64("threats_detected", threats).
		Int64("ips_blocked", blocked).
		Msg("Report delivered")

	return nil
}

// EnforceOnce checks the connection table against the blocklist. It
// returns errBlockListEmpty without looking when there is nothing to
// enforce.
func (a *Agent) EnforceOnce(ctx context.Context) error {
	if a.blocklist.Len() == 0 {
		return errBlockListEmpty
	}

	conns, err := a.deps.Connections.Connections(ctx)
	if err != nil {
		return err
	}

	for _, c := range conns {
		a.enforcer.Inspect(ctx, c.PID, c.Remote.Addr())
	}

	return nil
}

// runEnforcement paces EnforceOnce: the normal interval after a clean
// pass, the idle interval when the list is empty or enumeration failed.
func (a *Agent) runEnforcement(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next := a.cfg.EnforceInterval.Std()

		if err := a.EnforceOnce(ctx); err != nil {
			if !errors.Is(err, errBlockListEmpty) {
				a.logger.Warn().Err(err).Msg("Connection enumeration failed")
			}

			next = a.cfg.IdleInterval.Std()
		}

		timer.Reset(next)
	}
}

// runCapture feeds packet endpoints to the enforcer until ctx ends. A
// capture that stops is reopened after the discovery backoff.
func (a *Agent) runCapture(ctx context.Context) {
	if a.deps.Capture == nil {
		return
	}

	retry := a.cfg.DiscoveryBackoff.Std()

	for {
		err := a.deps.Capture.Run(ctx, func(src, dst netip.Addr) {
			a.inspectPacket(ctx, src, dst)
		})
		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, errCaptureDisabled) {
			a.logger.Warn().Err(err).Msg("Passive detection disabled")
			return
		}

		a.logger.Error().Err(err).Dur("retry_in", retry).Msg("Packet capture stopped, retrying")

		timer := time.NewTimer(retry)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// inspectPacket resolves the owners of a packet to a blocked address
// through the connection table.
func (a *Agent) inspectPacket(ctx context.Context, src, dst netip.Addr) {
	a.metrics.PacketsInspected.Inc()

	remote := a.remoteEndpoint(src, dst)
	if !remote.IsValid() || !a.blocklist.Contains(remote) {
		return
	}

	now := a.now()
	if last, ok := a.captureSeen[remote]; ok && now.Sub(last) < a.cfg.EnforceInterval.Std() {
		return
	}

	a.captureSeen[remote] = now

	for addr, at := range a.captureSeen {
		if now.Sub(at) >= handledWindow {
			delete(a.captureSeen, addr)
		}
	}

	pids, err := a.owners(ctx, remote)
	if err != nil {
		a.logger.Debug().Err(err).Str("remote", remote.String()).Msg("Could not resolve packet owner")
	}

	if len(pids) == 0 {
		a.enforcer.Inspect(ctx, 0, remote)
		return
	}

	for _, pid := range pids {
		a.enforcer.Inspect(ctx, pid, remote)
	}
}

// remoteEndpoint picks the far end of a packet. The profile only carries
// the primary IPv4 address, so a blocked endpoint is taken as remote before
// falling back to the exemption rules.
func (a *Agent) remoteEndpoint(src, dst netip.Addr) netip.Addr {
	profile := a.enforcer.Profile()

	switch {
	case src == profile.Address:
		return dst
	case dst == profile.Address:
		return src
	case a.blocklist.Contains(dst):
		return dst
	case a.blocklist.Contains(src):
		return src
	case netprofile.Exempt(src, profile):
		return dst
	default:
		return src
	}
}

func (a *Agent) owners(ctx context.Context, remote netip.Addr) ([]int32, error) {
	conns, err := a.deps.Connections.Connections(ctx)
	if err != nil {
		return nil, err
	}

	var pids []int32

	seen := make(map[int32]struct{})

	for _, c := range conns {
		if c.Remote.Addr() != remote || c.PID <= 0 {
			continue
		}

		if _, dup := seen[c.PID]; dup {
			continue
		}

		seen[c.PID] = struct{}{}
		pids = append(pids, c.PID)
	}

	if len(pids) == 0 {
		return nil, errNoOwner
	}

	return pids, nil
}

// connect returns the client for the known Edge Agent, running a
// rate-limited discovery when there is none.
func (a *Agent) connect(ctx context.Context) (EdgeClient, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()

	if client != nil {
		return client, nil
	}

	if !a.limiter.AllowN(a.now(), 1) {
		return nil, errDiscoveryBackoff
	}

	edge, err := a.deps.Locator.Locate(ctx)
	a.metrics.DiscoveryAttempts.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		a.logger.Warn().Err(err).Msg("Edge agent discovery failed")
		return nil, err
	}

	client, err = a.deps.NewClient(edge.BaseURL())
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.edge = edge
	a.client = client
	a.state = StateEnforcing
	a.failingSince = time.Time{}
	a.mu.Unlock()

	a.enforcer.SetProfile(a.deps.Profiles.Resolve())
	a.metrics.Enforcing.Set(1)

	a.logger.Info().
		Str("edge", edge.Address.String()).
		Str("box_code", edge.BoxCode).
		Str("box_name", edge.BoxName).
		Msg("Edge agent found")

	return client, nil
}

// observe tracks Edge reachability. Unreachability that outlasts the grace
// period drops the agent back to discovering.
func (a *Agent) observe(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err == nil || !api.IsUnreachable(err) {
		a.failingSince = time.Time{}
		return
	}

	now := a.now()

	if a.failingSince.IsZero() {
		a.failingSince = now
		return
	}

	if now.Sub(a.failingSince) < a.cfg.GracePeriod.Std() {
		return
	}

	a.logger.Warn().
		Dur("unreachable_for", now.Sub(a.failingSince)).
		Msg("Edge agent unreachable past grace period, rediscovering")

	a.state = StateDiscovering
	a.edge = nil
	a.client = nil
	a.failingSince = time.Time{}
	a.metrics.Enforcing.Set(0)
}
