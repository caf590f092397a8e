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
	"errors"
	"fmt"

	"github.com/carverauto/threatmesh/pkg/db"
	httpx "github.com/carverauto/threatmesh/pkg/http"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
)

// Service runs the Aggregator HTTP server over its stores.
type Service struct {
	cfg     *Config
	db      db.Service
	archive kv.KVStore
	agg     *Aggregator
	server  *httpx.Server
	logger  logger.Logger
}

func NewService(ctx context.Context, cfg *Config, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aggregator configuration: %w", err)
	}

	store, err := db.Open(ctx, &cfg.DB, log)
	if err != nil {
		return nil, err
	}

	archive, err := kv.New(ctx, &cfg.Archive)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	return newService(cfg, store, archive, log)
}

func newService(cfg *Config, store db.Service, archive kv.KVStore, log logger.Logger) (*Service, error) {
	agg, err := New(store, NewArchive(archive), metrics.NewRegistry(), log)
	if err != nil {
		return nil, err
	}

	if cfg.AdminAPIKey == "" {
		log.Warn().Msg("admin_api_key not set, blocklist administration is disabled")
	}

	return &Service{
		cfg:     cfg,
		db:      store,
		archive: archive,
		agg:     agg,
		server:  httpx.NewServer(cfg.ListenAddr, agg.Router(cfg.AdminAPIKey), log),
		logger:  log,
	}, nil
}

func (s *Service) Aggregator() *Aggregator {
	return s.agg
}

func (s *Service) Start(ctx context.Context) error {
	if s.cfg.SeedExamples {
		if err := s.agg.SeedExamples(ctx); err != nil {
			return fmt.Errorf("failed to seed blocklist: %w", err)
		}
	}

	if err := s.server.Start(); err != nil {
		return err
	}

	s.logger.Info().Str("addr", s.server.Addr()).Str("driver", s.cfg.DB.Driver).Msg("Aggregator running")

	<-ctx.Done()

	return ctx.Err()
}

func (s *Service) Stop(ctx context.Context) error {
	errServer := s.server.Shutdown(ctx)

	return errors.Join(errServer, s.db.Close(), s.archive.Close())
}
