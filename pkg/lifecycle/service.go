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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/threatmesh/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Service is a long-running role process.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type ServiceOptions struct {
	ServiceName     string
	Service         Service
	Logger          logger.Logger
	ShutdownTimeout time.Duration
	// Signals overrides the default SIGINT/SIGTERM set; used by tests.
	Signals []os.Signal
}

// RunService starts the service, blocks until ctx is cancelled or a shutdown
// signal arrives, then stops the service within the shutdown timeout.
func RunService(ctx context.Context, opts *ServiceOptions) error {
	if opts == nil || opts.Service == nil {
		return errServiceRequired
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	runCtx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		errCh <- opts.Service.Start(runCtx)
	}()

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	var startErr error

	select {
	case <-runCtx.Done():
		log.Info().Str("service", opts.ServiceName).Msg("Shutdown requested")
	case startErr = <-errCh:
		if startErr != nil && !errors.Is(startErr, context.Canceled) {
			log.Error().Err(startErr).Str("service", opts.ServiceName).Msg("Service exited with error")
		}
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := opts.Service.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop %s: %w", opts.ServiceName, err)
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		return startErr
	}

	return nil
}

var errServiceRequired = errors.New("service is required")
