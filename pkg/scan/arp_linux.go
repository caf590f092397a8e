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

//go:build linux

package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket/layers"
	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/carverauto/threatmesh/pkg/logger"
)

// RawARPProber sends ARP requests on an AF_PACKET socket and collects replies.
// It needs CAP_NET_RAW.
type RawARPProber struct {
	cfg    ARPConfig
	logger logger.Logger
}

func NewARPProber(cfg ARPConfig, log logger.Logger) *RawARPProber {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &RawARPProber{cfg: cfg.withDefaults(), logger: log}
}

func (p *RawARPProber) Probe(
	ctx context.Context, ifname string, src netip.Addr, targets []netip.Addr,
) (map[netip.Addr]net.HardwareAddr, error) {
	if ifname == "" {
		return nil, ErrInterfaceRequired
	}

	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interface %s: %w", ifname, err)
	}

	if len(ifi.HardwareAddr) != 6 {
		return nil, fmt.Errorf("%w: %s", ErrInterfaceNoMAC, ifname)
	}

	conn, err := packet.Listen(ifi, packet.Raw, unix.ETH_P_ARP, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open ARP socket on %s: %w", ifname, err)
	}
	defer func() { _ = conn.Close() }()

	wanted := make(map[netip.Addr]struct{}, len(targets))
	for _, t := range targets {
		wanted[t] = struct{}{}
	}

	var (
		mu      sync.Mutex
		replies = make(map[netip.Addr]net.HardwareAddr)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)

		p.readReplies(conn, wanted, func(ip netip.Addr, mac net.HardwareAddr) {
			mu.Lock()
			replies[ip] = mac
			mu.Unlock()
		})
	}()

	limiter := rate.NewLimiter(rate.Limit(p.cfg.Rate), p.cfg.Rate/8+1)
	dst := &packet.Addr{HardwareAddr: layers.EthernetBroadcast}

	for _, target := range targets {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		frame, err := buildARPRequest(ifi.HardwareAddr, src, target)
		if err != nil {
			return nil, err
		}

		if _, err := conn.WriteTo(frame, dst); err != nil {
			p.logger.Debug().Err(err).Str("target", target.String()).Msg("ARP request failed")
		}
	}

	wait := time.NewTimer(p.cfg.Timeout)
	defer wait.Stop()

	select {
	case <-ctx.Done():
	case <-wait.C:
	}

	// Unblocks the reader.
	_ = conn.SetReadDeadline(time.Now())
	<-done

	mu.Lock()
	defer mu.Unlock()

	return replies, ctx.Err()
}

func (p *RawARPProber) readReplies(conn *packet.Conn, wanted map[netip.Addr]struct{}, found func(netip.Addr, net.HardwareAddr)) {
	buf := make([]byte, 1500)

	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				p.logger.Debug().Err(err).Msg("ARP read stopped")
			}

			return
		}

		ip, mac, ok := parseARPReply(buf[:n])
		if !ok {
			continue
		}

		if _, ok := wanted[ip]; ok {
			found(ip, mac)
		}
	}
}
