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

package scan

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/carverauto/threatmesh/pkg/logger"
)

var defaultProbePorts = []int{80, 443, 22, 445, 139, 53}

const (
	defaultSweepTimeout     = time.Second
	defaultSweepConcurrency = 64

	defaultConcurrencyMultiplier = 2
)

// TCPSweeper finds live hosts by connecting to a handful of common ports.
// A completed handshake or an RST both prove the host is up.
type TCPSweeper struct {
	timeout     time.Duration
	concurrency int
	ports       []int
	logger      logger.Logger
	dial        func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewTCPSweeper(timeout time.Duration, concurrency int, ports []int, log logger.Logger) *TCPSweeper {
	if timeout <= 0 {
		timeout = defaultSweepTimeout
	}

	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}

	if len(ports) == 0 {
		ports = defaultProbePorts
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	var dialer net.Dialer

	return &TCPSweeper{
		timeout:     timeout,
		concurrency: concurrency,
		ports:       ports,
		logger:      log,
		dial:        dialer.DialContext,
	}
}

// Sweep returns the subset of hosts that answered, in no particular order.
func (s *TCPSweeper) Sweep(ctx context.Context, hosts []netip.Addr) ([]netip.Addr, error) {
	if len(hosts) == 0 {
		return nil, nil
	}

	workCh := make(chan netip.Addr, s.concurrency*defaultConcurrencyMultiplier)
	resultCh := make(chan netip.Addr, len(hosts))

	var wg sync.WaitGroup

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			s.worker(ctx, workCh, resultCh)
		}()
	}

	go func() {
		defer close(workCh)

		for _, h := range hosts {
			select {
			case <-ctx.Done():
				return
			case workCh <- h:
			}
		}
	}()

	wg.Wait()
	close(resultCh)

	alive := make([]netip.Addr, 0, len(resultCh))
	for a := range resultCh {
		alive = append(alive, a)
	}

	return alive, ctx.Err()
}

func (s *TCPSweeper) worker(ctx context.Context, workCh <-chan netip.Addr, resultCh chan<- netip.Addr) {
	for host := range workCh {
		if ctx.Err() != nil {
			continue
		}

		if s.hostAlive(ctx, host) {
			resultCh <- host
		}
	}
}

func (s *TCPSweeper) hostAlive(ctx context.Context, host netip.Addr) bool {
	for _, port := range s.ports {
		err := s.checkPort(ctx, host, port)
		if err == nil || errors.Is(err, errConnectionRefused) {
			return true
		}

		if ctx.Err() != nil {
			return false
		}
	}

	return false
}

func (s *TCPSweeper) checkPort(ctx context.Context, host netip.Addr, port int) error {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dial(probeCtx, "tcp", net.JoinHostPort(host.String(), strconv.Itoa(port)))
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return errConnectionRefused
		}

		return err
	}

	if err := conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("failed to close probe connection")
	}

	return nil
}
