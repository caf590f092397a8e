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

package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"

	"github.com/carverauto/threatmesh/pkg/discovery"
)

const (
	captureSnapLen      = 1600
	captureReadDeadline = time.Second
)

// RawCapture reads every frame on an interface through an AF_PACKET
// socket. It needs CAP_NET_RAW.
type RawCapture struct {
	ifname   string
	profiles discovery.ProfileSource
}

// NewRawCapture captures on ifname, or on the primary interface of the
// current network profile when ifname is empty. The profile is read again
// on every Run.
func NewRawCapture(ifname string, profiles discovery.ProfileSource) *RawCapture {
	return &RawCapture{ifname: ifname, profiles: profiles}
}

func (c *RawCapture) Run(ctx context.Context, fn func(src, dst netip.Addr)) error {
	ifname := captureInterface(c.ifname, c.profiles)
	if ifname == "" {
		return errNoCaptureInterface
	}

	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return fmt.Errorf("failed to look up interface %s: %w", ifname, err)
	}

	conn, err := packet.Listen(ifi, packet.Raw, unix.ETH_P_ALL, nil)
	if err != nil {
		return fmt.Errorf("failed to open capture socket on %s: %w", ifname, err)
	}
	defer func() { _ = conn.Close() }()

	dec := newFrameDecoder()
	buf := make([]byte, captureSnapLen)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := conn.SetReadDeadline(time.Now().Add(captureReadDeadline)); err != nil {
			return err
		}

		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			return fmt.Errorf("capture read failed: %w", err)
		}

		if src, dst, ok := dec.endpoints(buf[:n]); ok {
			fn(src, dst)
		}
	}
}
