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
	"fmt"
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// parseARPReply extracts the sender of an Ethernet ARP reply.
func parseARPReply(frame []byte) (netip.Addr, net.HardwareAddr, bool) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)

	layer := pkt.Layer(layers.LayerTypeARP)
	if layer == nil {
		return netip.Addr{}, nil, false
	}

	arp, ok := layer.(*layers.ARP)
	if !ok || arp.Operation != layers.ARPReply {
		return netip.Addr{}, nil, false
	}

	ip, ok := netip.AddrFromSlice(arp.SourceProtAddress)
	if !ok {
		return netip.Addr{}, nil, false
	}

	mac := make(net.HardwareAddr, len(arp.SourceHwAddress))
	copy(mac, arp.SourceHwAddress)

	return ip.Unmap(), mac, true
}

func buildARPRequest(srcMAC net.HardwareAddr, src, target netip.Addr) ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}

	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: src.AsSlice(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    target.AsSlice(),
	}

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, &eth, &arp); err != nil {
		return nil, fmt.Errorf("failed to build ARP request: %w", err)
	}

	return buf.Bytes(), nil
}
