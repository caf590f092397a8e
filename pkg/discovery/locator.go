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

// Package discovery locates the Edge Agent serving a Monitor Agent.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/netprofile"
	"github.com/carverauto/threatmesh/pkg/scan"
)

// CacheKey holds the last Edge Agent that answered.
const CacheKey = "edge_address"

const (
	DefaultPort             = 5001
	defaultFastPathTimeout  = 2 * time.Second
	defaultProbeTimeout     = time.Second
	defaultSweepConcurrency = 32
)

type Config struct {
	Port            uint16
	FastPathTimeout time.Duration
	ProbeTimeout    time.Duration
	Concurrency     int
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}

	if c.FastPathTimeout <= 0 {
		c.FastPathTimeout = defaultFastPathTimeout
	}

	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}

	if c.Concurrency <= 0 {
		c.Concurrency = defaultSweepConcurrency
	}
}

// Locator finds an Edge Agent: first the cached address, then a bounded
// sweep of the local subnet where the first responder wins.
type Locator struct {
	cfg      Config
	prober   Prober
	profiles ProfileSource
	store    kv.KVStore
	logger   logger.Logger
	now      func() time.Time
}

func NewLocator(cfg Config, prober Prober, profiles ProfileSource, store kv.KVStore, log logger.Logger) (*Locator, error) {
	if prober == nil {
		return nil, errProberRequired
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	if profiles == nil {
		profiles = netprofile.NewResolver(log)
	}

	cfg.applyDefaults()

	return &Locator{
		cfg:      cfg,
		prober:   prober,
		profiles: profiles,
		store:    store,
		logger:   log,
		now:      time.Now,
	}, nil
}

// Locate returns the Edge Agent to use. It returns ErrEdgeNotFound when
// nothing answered.
func (l *Locator) Locate(ctx context.Context) (*Edge, error) {
	if cached, ok := l.cached(ctx); ok {
		if edge, err := l.probe(ctx, cached.Address, l.cfg.FastPathTimeout); err == nil {
			l.logger.Debug().Str("edge", edge.Address.String()).Msg("Cached edge agent confirmed")

			l.remember(ctx, edge)

			return edge, nil
		}

		l.logger.Info().Str("edge", cached.Address.String()).Msg("Cached edge agent did not answer, sweeping")
	}

	edge, err := l.sweep(ctx)
	if err != nil {
		return nil, err
	}

	l.remember(ctx, edge)

	return edge, nil
}

// Cached returns the last known Edge Agent without probing it.
func (l *Locator) Cached(ctx context.Context) (*Edge, bool) {
	return l.cached(ctx)
}

func (l *Locator) cached(ctx context.Context) (*Edge, bool) {
	if l.store == nil {
		return nil, false
	}

	var edge Edge

	found, err := kv.GetJSON(ctx, l.store, CacheKey, &edge)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Ignoring unreadable edge cache")
		return nil, false
	}

	if !found || !edge.Address.IsValid() {
		return nil, false
	}

	return &edge, true
}

func (l *Locator) remember(ctx context.Context, edge *Edge) {
	if l.store == nil {
		return
	}

	if err := kv.PutJSON(ctx, l.store, CacheKey, edge); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to cache edge address")
	}
}

func (l *Locator) probe(ctx context.Context, addr netip.AddrPort, timeout time.Duration) (*Edge, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := l.prober.Probe(probeCtx, addr)
	if err != nil {
		return nil, err
	}

	if !resp.Recognized() {
		return nil, fmt.Errorf("%s: unrecognized discover response", addr)
	}

	return &Edge{
		Address:   addr,
		BoxCode:   resp.BoxCode,
		BoxName:   resp.BoxName,
		Timestamp: l.now().UTC(),
	}, nil
}

func (l *Locator) sweep(ctx context.Context) (*Edge, error) {
	profile := l.profiles.Resolve()
	prefix := netprofile.SweepPrefix(profile)
	hosts := scan.Hosts(prefix, profile.Address)

	l.logger.Info().
		Str("prefix", prefix.String()).
		Int("hosts", len(hosts)).
		Int("concurrency", l.cfg.Concurrency).
		Msg("Sweeping for edge agent")

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once   sync.Once
		winner *Edge
	)

	g, gctx := errgroup.WithContext(sweepCtx)
	g.SetLimit(l.cfg.Concurrency)

	for _, host := range hosts {
		if gctx.Err() != nil {
			break
		}

		addr := netip.AddrPortFrom(host, l.cfg.Port)

		g.Go(func() error {
			edge, err := l.probe(gctx, addr, l.cfg.ProbeTimeout)
			if err != nil {
				return nil
			}

			once.Do(func() {
				winner = edge
				cancel()
			})

			return nil
		})
	}

	_ = g.Wait()

	if winner != nil {
		l.logger.Info().
			Str("edge", winner.Address.String()).
			Str("box_code", winner.BoxCode).
			Msg("Edge agent found")

		return winner, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrEdgeNotFound, err)
	}

	return nil, ErrEdgeNotFound
}
