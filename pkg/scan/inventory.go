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
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
	"github.com/carverauto/threatmesh/pkg/netprofile"
)

const (
	unknownMAC       = "Unknown"
	nameLookupLimit  = 16
	activeNamePrefix = "Device-"
	unknownPrefix    = "Unknown-"
)

// HostProber finds live hosts without link-layer access.
type HostProber interface {
	Sweep(ctx context.Context, hosts []netip.Addr) ([]netip.Addr, error)
}

// InventoryScanner builds a device inventory from an active ARP probe and
// a passive host sweep. ARP records win when both report an address.
type InventoryScanner struct {
	arp    ARPProber
	hosts  HostProber
	names  NameResolver
	logger logger.Logger
}

// NewInventoryScanner wires the probes. names may be nil, in which case
// passive hits are named Unknown-<ip>.
func NewInventoryScanner(arp ARPProber, hosts HostProber, names NameResolver, log logger.Logger) *InventoryScanner {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &InventoryScanner{arp: arp, hosts: hosts, names: names, logger: log}
}

// Scan probes the sweep prefix of profile. It fails only when both sources fail.
func (s *InventoryScanner) Scan(ctx context.Context, profile models.NetworkProfile) ([]models.Device, error) {
	prefix := netprofile.SweepPrefix(profile)
	targets := Hosts(prefix, profile.Address)

	var (
		active, passive  []models.Device
		arpErr, sweepErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		active, arpErr = s.scanActive(gctx, profile, targets)
		return nil
	})

	g.Go(func() error {
		passive, sweepErr = s.scanPassive(gctx, targets)
		return nil
	})

	_ = g.Wait()

	if arpErr != nil {
		s.logger.Warn().Err(arpErr).Str("prefix", prefix.String()).Msg("ARP scan failed")
	}

	if sweepErr != nil {
		s.logger.Warn().Err(sweepErr).Str("prefix", prefix.String()).Msg("Host sweep failed")
	}

	if arpErr != nil && sweepErr != nil {
		return nil, fmt.Errorf("%w: arp: %w, sweep: %w", ErrScanFailed, arpErr, sweepErr)
	}

	devices := models.MergeDevices(active, passive)

	s.logger.Info().
		Str("prefix", prefix.String()).
		Int("arp", len(active)).
		Int("sweep", len(passive)).
		Int("devices", len(devices)).
		Msg("Network scan complete")

	return devices, nil
}

func (s *InventoryScanner) scanActive(ctx context.Context, profile models.NetworkProfile, targets []netip.Addr) ([]models.Device, error) {
	if s.arp == nil {
		return nil, ErrARPUnsupported
	}

	replies, err := s.arp.Probe(ctx, profile.Interface, profile.Address, targets)
	if err != nil && len(replies) == 0 {
		return nil, err
	}

	devices := make([]models.Device, 0, len(replies))

	for ip, mac := range replies {
		devices = append(devices, models.Device{
			Name: activeNamePrefix + ip.String(),
			IP:   ip.String(),
			MAC:  formatMAC(mac),
		})
	}

	return devices, nil
}

func (s *InventoryScanner) scanPassive(ctx context.Context, targets []netip.Addr) ([]models.Device, error) {
	if s.hosts == nil {
		return nil, nil
	}

	alive, err := s.hosts.Sweep(ctx, targets)
	if err != nil && len(alive) == 0 {
		return nil, err
	}

	devices := make([]models.Device, len(alive))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nameLookupLimit)

	for i, ip := range alive {
		g.Go(func() error {
			name := s.nameFor(gctx, ip)

			devices[i] = models.Device{Name: name, IP: ip.String(), MAC: unknownMAC}

			return nil
		})
	}

	_ = g.Wait()

	return devices, nil
}

func (s *InventoryScanner) nameFor(ctx context.Context, ip netip.Addr) string {
	if s.names != nil {
		if name, err := s.names.LookupAddr(ctx, ip); err == nil && name != "" {
			return name
		}
	}

	return unknownPrefix + ip.String()
}

func formatMAC(mac net.HardwareAddr) string {
	if len(mac) == 0 {
		return unknownMAC
	}

	return mac.String()
}
