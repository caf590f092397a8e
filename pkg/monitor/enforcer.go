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
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/carverauto/threatmesh/pkg/blocklist"
	"github.com/carverauto/threatmesh/pkg/geoip"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/models"
	"github.com/carverauto/threatmesh/pkg/netprofile"
)

// handledWindow is how long a detection key is remembered. A PID seen
// again within the window is not counted or signalled a second time.
const handledWindow = 30 * time.Second

type detectionKey struct {
	pid  int32
	addr netip.Addr
}

// Enforcer is the single sink for both detection producers. It is safe for
// concurrent use; terminations run in the background, one per PID.
type Enforcer struct {
	blocklist  *blocklist.Store
	counters   *Counters
	terminator Terminator
	geo        geoip.Lookup
	metrics    *metrics.Monitor
	logger     logger.Logger
	now        func() time.Time
	selfPID    int32

	mu       sync.Mutex
	profile  models.NetworkProfile
	handled  map[detectionKey]time.Time
	inflight map[int32]struct{}
	wg       sync.WaitGroup
}

func NewEnforcer(
	list *blocklist.Store, counters *Counters, terminator Terminator,
	geo geoip.Lookup, m *metrics.Monitor, log logger.Logger,
) *Enforcer {
	if geo == nil {
		geo = geoip.Nop{}
	}

	return &Enforcer{
		blocklist:  list,
		counters:   counters,
		terminator: terminator,
		geo:        geo,
		metrics:    m,
		logger:     log,
		now:        time.Now,
		selfPID:    int32(os.Getpid()),
		profile:    models.DefaultNetworkProfile(),
		handled:    make(map[detectionKey]time.Time),
		inflight:   make(map[int32]struct{}),
	}
}

// SetProfile updates the local network used to exempt addresses.
func (e *Enforcer) SetProfile(p models.NetworkProfile) {
	e.mu.Lock()
	e.profile = p
	e.mu.Unlock()
}

// Inspect evaluates one observed flow. A blocked remote counts a threat
// and starts terminating pid. It reports whether the flow was a new
// detection.
func (e *Enforcer) Inspect(ctx context.Context, pid int32, remote netip.Addr) bool {
	remote = remote.Unmap()

	e.mu.Lock()
	profile := e.profile
	e.mu.Unlock()

	if !remote.IsValid() || netprofile.Exempt(remote, profile) {
		return false
	}

	if !e.blocklist.Contains(remote) {
		return false
	}

	key := detectionKey{pid: pid}
	if pid <= 0 {
		key = detectionKey{addr: remote}
	}

	now := e.now()

	e.mu.Lock()
	e.expireLocked(now)

	if _, seen := e.handled[key]; seen {
		e.mu.Unlock()
		return false
	}

	e.handled[key] = now

	_, busy := e.inflight[pid]
	terminate := pid > 0 && pid != e.selfPID && !busy

	if terminate {
		e.inflight[pid] = struct{}{}
	}
	e.mu.Unlock()

	e.counters.AddThreat()
	e.metrics.ThreatsDetected.Inc()

	country, _ := e.geo.Country(remote)

	e.logger.Warn().
		Str("remote", remote.String()).
		Str("country", country).
		Int32("pid", pid).
		Msg("Connection to blocked address detected")

	if terminate {
		e.wg.Add(1)

		go e.terminate(context.WithoutCancel(ctx), pid, remote)
	}

	return true
}

func (e *Enforcer) terminate(ctx context.Context, pid int32, remote netip.Addr) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.inflight, pid)
		e.mu.Unlock()
	}()

	ok, err := e.terminator.Terminate(ctx, pid)
	if err != nil || !ok {
		e.metrics.ProcessesTerminated.WithLabelValues(metrics.ResultFail).Inc()
		e.logger.Error().
			Err(err).
			Int32("pid", pid).
			Str("remote", remote.String()).
			Msg("Failed to terminate process")

		return
	}

	e.counters.AddBlocked()
	e.metrics.ProcessesTerminated.WithLabelValues(metrics.ResultOK).Inc()
	e.logger.Info().Int32("pid", pid).Str("remote", remote.String()).Msg("Process terminated")
}

// Wait blocks until in-flight terminations finish.
func (e *Enforcer) Wait() {
	e.wg.Wait()
}

func (e *Enforcer) expireLocked(now time.Time) {
	for k, at := range e.handled {
		if now.Sub(at) >= handledWindow {
			delete(e.handled, k)
		}
	}
}

func (e *Enforcer) Profile() models.NetworkProfile {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.profile
}
