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

package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/carverauto/threatmesh/pkg/api"
	"github.com/carverauto/threatmesh/pkg/discovery"
	"github.com/carverauto/threatmesh/pkg/geoip"
	httpx "github.com/carverauto/threatmesh/pkg/http"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/netprofile"
	"github.com/carverauto/threatmesh/pkg/scheduler"
)

const (
	taskDiscover  = "discover"
	taskBlockList = "blocklist_refresh"
	taskReport    = "report"
)

// Service runs an Agent: the enforcement and capture loops plus the
// scheduled discovery, refresh and report tasks.
type Service struct {
	cfg     *Config
	store   kv.KVStore
	geo     *geoip.DB
	agent   *Agent
	sched   *scheduler.Scheduler
	metrics *httpx.Server
	logger  logger.Logger
	loops   sync.WaitGroup
}

func NewService(ctx context.Context, cfg *Config, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor configuration: %w", err)
	}

	store, err := kv.New(ctx, &cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	profiles := netprofile.NewResolver(log)

	locator, err := discovery.NewLocator(discovery.Config{Port: cfg.EdgePort}, discovery.HTTPProber{}, profiles, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	deps := Deps{
		Connections: SystemConnections{},
		Terminator:  NewProcessTerminator(cfg.TerminateWait.Std()),
		Locator:     locator,
		Profiles:    profiles,
		Registry:    metrics.NewRegistry(),
	}

	var geo *geoip.DB

	if cfg.GeoIPPath != "" {
		if geo, err = geoip.Open(cfg.GeoIPPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.GeoIPPath).Msg("GeoIP database unavailable, detections will not be tagged")
		} else {
			deps.Geo = geo
		}
	}

	if cfg.Capture {
		deps.Capture = NewRawCapture(cfg.CaptureInterface, profiles)
	}

	agent, err := NewAgent(cfg, store, deps, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := newService(cfg, store, agent, scheduler.RealClock(), log)
	svc.geo = geo

	return svc, nil
}

func newService(cfg *Config, store kv.KVStore, agent *Agent, clock scheduler.Clock, log logger.Logger) *Service {
	svc := &Service{
		cfg:    cfg,
		store:  store,
		agent:  agent,
		sched:  scheduler.New(clock, log),
		logger: log,
	}

	if cfg.MetricsAddr != "" {
		r := mux.NewRouter()
		r.HandleFunc(api.PathHealth, api.HealthHandler).Methods(http.MethodGet)
		r.Handle(api.PathMetrics, metrics.Handler(agent.deps.Registry)).Methods(http.MethodGet)

		svc.metrics = httpx.NewServer(cfg.MetricsAddr, r, log)
	}

	return svc
}

func (s *Service) Agent() *Agent {
	return s.agent
}

// Start restores state, attempts discovery once and runs until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	if err := s.agent.Init(ctx); err != nil {
		return err
	}

	if err := s.agent.Discover(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Initial discovery failed, enforcing cached blocklist")
	}

	tasks := []scheduler.Task{
		{Name: taskDiscover, Interval: s.cfg.DiscoveryBackoff.Std(), Run: s.agent.Discover},
		{Name: taskBlockList, Interval: s.cfg.BlockListInterval.Std(), Run: s.agent.RefreshBlockList},
		{Name: taskReport, Interval: s.cfg.ReportInterval.Std(), Run: s.agent.SendReport},
	}

	for _, t := range tasks {
		if err := s.sched.Add(t); err != nil {
			return err
		}
	}

	s.sched.SetObserver(s.agent.metrics.Tasks.Observe)

	if s.metrics != nil {
		if err := s.metrics.Start(); err != nil {
			return err
		}
	}

	if err := s.sched.Start(ctx); err != nil {
		return err
	}

	s.loops.Add(2)

	go func() {
		defer s.loops.Done()
		s.agent.runEnforcement(ctx)
	}()

	go func() {
		defer s.loops.Done()
		s.agent.runCapture(ctx)
	}()

	s.logger.Info().
		Str("client", s.cfg.ClientName).
		Str("state", s.agent.State().String()).
		Bool("capture", s.agent.deps.Capture != nil).
		Msg("Monitor agent running")

	<-ctx.Done()

	return ctx.Err()
}

// Stop waits for the loops and any in-flight terminations, then closes the
// store.
func (s *Service) Stop(ctx context.Context) error {
	var errs []error

	if s.metrics != nil {
		errs = append(errs, s.metrics.Shutdown(ctx))
	}

	s.sched.Wait()
	s.loops.Wait()
	s.agent.enforcer.Wait()

	errs = append(errs, s.store.Close())

	if s.geo != nil {
		errs = append(errs, s.geo.Close())
	}

	return errors.Join(errs...)
}
