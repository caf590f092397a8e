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

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/carverauto/threatmesh/pkg/discovery"
)

// CaptureSource delivers the endpoints of IP packets seen on the wire.
type CaptureSource interface {
	Run(ctx context.Context, fn func(src, dst netip.Addr)) error
}

// captureInterface prefers the configured interface over the profile's.
func captureInterface(configured string, profiles discovery.ProfileSource) string {
	if configured != "" || profiles == nil {
		return configured
	}

	return profiles.Resolve().Interface
}

// frameDecoder reuses its layers across frames. It is not safe for
// concurrent use.
type frameDecoder struct {
	eth     layers.Ethernet
	ip4     layers.IPv4
	ip6     layers.IPv6
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

func newFrameDecoder() *frameDecoder {
	d := &frameDecoder{decoded: make([]gopacket.LayerType, 0, 4)}
	d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &d.eth, &d.ip4, &d.ip6)
	d.parser.IgnoreUnsupported = true

	return d
}

// endpoints returns the IP source and destination of an Ethernet frame.
func (d *frameDecoder) endpoints(frame []byte) (src, dst netip.Addr, ok bool) {
	if err := d.parser.DecodeLayers(frame, &d.decoded); err != nil {
		return netip.Addr{}, netip.Addr{}, false
	}

	for _, lt := range d.decoded {
		switch lt {
		case layers.LayerTypeIPv4:
			src, _ = netip.AddrFromSlice(d.ip4.SrcIP)
			dst, _ = netip.AddrFromSlice(d.ip4.DstIP)

			return src.Unmap(), dst.Unmap(), src.IsValid() && dst.IsValid()
		case layers.LayerTypeIPv6:
			src, _ = netip.AddrFromSlice(d.ip6.SrcIP)
			dst, _ = netip.AddrFromSlice(d.ip6.DstIP)

			return src, dst, src.IsValid() && dst.IsValid()
		}
	}

	return netip.Addr{}, netip.Addr{}, false
}
