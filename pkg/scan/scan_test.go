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
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

func TestHosts(t *testing.T) {
	prefix := netip.MustParsePrefix("192.168.1.0/24")
	own := netip.MustParseAddr("192.168.1.100")

	hosts := Hosts(prefix, own)

	require.Len(t, hosts, 253)
	assert.Equal(t, "192.168.1.1", hosts[0].String())
	assert.Equal(t, "192.168.1.254", hosts[len(hosts)-1].String())
	assert.NotContains(t, hosts, own)
	assert.NotContains(t, hosts, netip.MustParseAddr("192.168.1.0"))
	assert.NotContains(t, hosts, netip.MustParseAddr("192.168.1.255"))

	assert.Len(t, Hosts(netip.MustParsePrefix("10.0.0.0/31")), 2)
	assert.Nil(t, Hosts(netip.MustParsePrefix("fd00::/120")))
}

func TestTCPSweeperTreatsRefusedAsAlive(t *testing.T) {
	alive := netip.MustParseAddr("192.168.1.5")
	refused := netip.MustParseAddr("192.168.1.6")

	s := NewTCPSweeper(50*time.Millisecond, 4, []int{80}, logger.NewTestLogger())
	s.dial = func(ctx context.Context, _, address string) (net.Conn, error) {
		switch address {
		case "192.168.1.5:80":
			client, server := net.Pipe()
			_ = server.Close()

			return client, nil
		case "192.168.1.6:80":
			return nil, &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
		default:
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}

	hosts := Hosts(netip.MustParsePrefix("192.168.1.0/28"))

	found, err := s.Sweep(context.Background(), hosts)
	require.NoError(t, err)
	assert.ElementsMatch(t, []netip.Addr{alive, refused}, found)
}

func TestTCPSweeperBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	s := NewTCPSweeper(time.Second, 3, []int{80}, nil)
	s.dial = func(context.Context, string, string) (net.Conn, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)

		return nil, errors.New("unreachable")
	}

	_, err := s.Sweep(context.Background(), Hosts(netip.MustParsePrefix("10.0.0.0/27")))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func buildARPReply(t *testing.T, sender netip.Addr, mac net.HardwareAddr) []byte {
	t.Helper()

	eth := layers.Ethernet{SrcMAC: mac, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   mac,
		SourceProtAddress: sender.AsSlice(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{192, 168, 1, 100},
	}

	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, &eth, &arp))

	return buf.Bytes()
}

func TestARPFrames(t *testing.T) {
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	sender := netip.MustParseAddr("192.168.1.5")

	ip, gotMAC, ok := parseARPReply(buildARPReply(t, sender, mac))
	require.True(t, ok)
	assert.Equal(t, sender, ip)
	assert.Equal(t, mac, gotMAC)

	request, err := buildARPRequest(mac, netip.MustParseAddr("192.168.1.100"), sender)
	require.NoError(t, err)

	_, _, ok = parseARPReply(request)
	assert.False(t, ok, "requests are not replies")

	_, _, ok = parseARPReply([]byte{0x01, 0x02})
	assert.False(t, ok)
}

type fakeARP struct {
	replies map[netip.Addr]net.HardwareAddr
	err     error
}

func (f *fakeARP) Probe(context.Context, string, netip.Addr, []netip.Addr) (map[netip.Addr]net.HardwareAddr, error) {
	return f.replies, f.err
}

type fakeSweep struct {
	alive []netip.Addr
	err   error
}

func (f *fakeSweep) Sweep(context.Context, []netip.Addr) ([]netip.Addr, error) {
	return f.alive, f.err
}

type fakeNames map[netip.Addr]string

func (f fakeNames) LookupAddr(_ context.Context, addr netip.Addr) (string, error) {
	if name, ok := f[addr]; ok {
		return name, nil
	}

	return "", ErrNoPTRRecord
}

func TestInventoryScanMergesSources(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	a5 := netip.MustParseAddr("192.168.1.5")
	a7 := netip.MustParseAddr("192.168.1.7")
	a9 := netip.MustParseAddr("192.168.1.9")

	scanner := NewInventoryScanner(
		&fakeARP{replies: map[netip.Addr]net.HardwareAddr{a5: mac}},
		&fakeSweep{alive: []netip.Addr{a5, a7, a9}},
		fakeNames{a7: "printer.lan"},
		logger.NewTestLogger(),
	)

	devices, err := scanner.Scan(context.Background(), models.DefaultNetworkProfile())
	require.NoError(t, err)

	assert.Equal(t, []models.Device{
		{Name: "Device-192.168.1.5", IP: "192.168.1.5", MAC: "00:11:22:33:44:55"},
		{Name: "printer.lan", IP: "192.168.1.7", MAC: "Unknown"},
		{Name: "Unknown-192.168.1.9", IP: "192.168.1.9", MAC: "Unknown"},
	}, devices)
}

func TestInventoryScanSurvivesOneFailure(t *testing.T) {
	scanner := NewInventoryScanner(
		&fakeARP{err: ErrARPUnsupported},
		&fakeSweep{alive: []netip.Addr{netip.MustParseAddr("192.168.1.20")}},
		nil,
		nil,
	)

	devices, err := scanner.Scan(context.Background(), models.DefaultNetworkProfile())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Unknown-192.168.1.20", devices[0].Name)
}

func TestInventoryScanFailsWhenBothFail(t *testing.T) {
	scanner := NewInventoryScanner(
		&fakeARP{err: ErrARPUnsupported},
		&fakeSweep{err: fmt.Errorf("sweep: %w", context.DeadlineExceeded)},
		nil,
		nil,
	)

	_, err := scanner.Scan(context.Background(), models.DefaultNetworkProfile())
	require.ErrorIs(t, err, ErrScanFailed)
	require.ErrorIs(t, err, ErrARPUnsupported)
}
