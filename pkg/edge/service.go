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
	"errors"
	"fmt"

	"github.com/carverauto/threatmesh/pkg/api"
	httpx "github.com/carverauto/threatmesh/pkg/http"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/netprofile"
	"github.com/carverauto/threatmesh/pkg/scan"
	"github.com/carverauto/threatmesh/pkg/scheduler"
)

const (
	taskScanPush  = "scan_push"
	taskBlockList = "blocklist_refresh"
)

// Service runs an Agent with its HTTP server and background tasks.
type Service struct {
	cfg    *Config
	store  kv.KVStore
	agent  *Agent
	server *httpx.Server
	sched  *scheduler.Scheduler
	logger logger.Logger
}

// NewService opens the local store and wires the production collaborators.
func NewService(ctx context.Context, cfg *Config, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid edge configuration: %w", err)
	}

	store, err := kv.New(ctx, &cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	upstream, err := api.NewClient(cfg.AggregatorURL, api.WithTimeout(cfg.RequestTimeout.Std()))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var names scan.NameResolver

	if ptr, err := scan.NewPTRResolver(cfg.DNSServers, 0); err != nil {
		log.Warn().Err(err).Msg("Reverse DNS unavailable, passive hosts will be unnamed")
	} else {
		names = ptr
	}

	scanner := scan.NewInventoryScanner(
		scan.NewARPProber(scan.ARPConfig{}, log),
		scan.NewTCPSweeper(cfg.ScanTimeout.Std(), cfg.ScanConcurrency, cfg.ScanPorts, log),
		names,
		log,
	)

	agent, err := NewAgent(cfg, store, Deps{
		Scanner:  scanner,
		Upstream: upstream,
		Profiles: netprofile.NewResolver(log),
		Latency:  GatewayLatency{},
		PublicIP: NewHTTPPublicIP(cfg.PublicIPURL, cfg.RequestTimeout.Std()),
		Registry: metrics.NewRegistry(),
	}, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return newService(cfg, store, agent, scheduler.RealClock(), log), nil
}

func newService(cfg *Config, store kv.KVStore, agent *Agent, clock scheduler.Clock, log logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		agent:  agent,
		server: httpx.NewServer(cfg.ListenAddr, agent.Router(), log),
		sched:  scheduler.New(clock, log),
		logger: log,
	}
}

func (s *Service) Agent() *Agent {
	return s.agent
}

// Start restores state, performs one blocklist refresh before serving, and
// runs until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if err := s.agent.Init(ctx); err != nil {
		return err
	}

	if err := s.agent.RefreshBlockList(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Initial blocklist refresh failed, serving cached list")
	}

	tasks := []scheduler.Task{
		{Name: taskScanPush, Interval: s.cfg.ScanInterval.Std(), Immediate: true, Run: s.agent.ScanAndPush},
		{Name: taskBlockList, Interval: s.cfg.BlockListInterval.Std(), Run: s.agent.RefreshBlockList},
	}

	for _, t := range tasks {
		if err := s.sched.Add(t); err != nil {
			return err
		}
	}

	s.sched.SetObserver(s.agent.metrics.Tasks.Observe)

	if err := s.server.Start(); err != nil {
		return err
	}

	if err := s.sched.Start(ctx); err != nil {
		return err
	}

	id, name := s.agent.Identity()
	s.logger.Info().Str("identity", id).Str("name", name).Str("addr", s.server.Addr()).Msg("Edge agent running")

	<-ctx.Done()

	return ctx.Err()
}

// Stop drains the HTTP server, waits for in-flight tasks and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	errServer := s.server.Shutdown(ctx)

	s.sched.Wait()

	return errors.Join(errServer, s.store.Close())
}
