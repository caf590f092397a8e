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
	"net"
	"net/netip"
	"time"
)

const (
	defaultARPTimeout = 3 * time.Second
	// defaultARPRate paces requests so a /20 sweep does not flood the segment.
	defaultARPRate = 512
)

// ARPProber resolves link-layer addresses for targets on a directly
// attached segment.
type ARPProber interface {
	Probe(ctx context.Context, ifname string, src netip.Addr, targets []netip.Addr) (map[netip.Addr]net.HardwareAddr, error)
}

type ARPConfig struct {
	// Timeout is how long to wait for replies after the last request.
	Timeout time.Duration
	// Rate is the maximum number of requests sent per second.
	Rate int
}

func (c ARPConfig) withDefaults() ARPConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultARPTimeout
	}

	if c.Rate <= 0 {
		c.Rate = defaultARPRate
	}

	return c
}
