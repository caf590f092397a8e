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

package netprofile

import (
	"net"
	"net/netip"

	"github.com/carverauto/threatmesh/pkg/models"
)

func addrFromIP(ip net.IP) (netip.Addr, bool) {
	ip4 := ip.To4()
	if ip4 == nil {
		return netip.Addr{}, false
	}

	return netip.AddrFrom4([4]byte(ip4)), true
}

// Exempt reports whether addr must never be evaluated against a blocklist:
// loopback, link-local, private and unspecified addresses, multicast, and
// anything inside the host's own subnet.
func Exempt(addr netip.Addr, own models.NetworkProfile) bool {
	addr = addr.Unmap()

	if !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsPrivate() {
		return true
	}

	return own.Subnet.IsValid() && own.Subnet.Contains(addr)
}

// sweepMinBits bounds enumeration to at most 4094 hosts.
const sweepMinBits = 20

// SweepPrefix returns the prefix to enumerate for host discovery. Subnets
// wider than /20 are narrowed to the /24 containing the host address.
func SweepPrefix(p models.NetworkProfile) netip.Prefix {
	if p.Subnet.Bits() >= sweepMinBits {
		return p.Subnet.Masked()
	}

	narrowed, err := p.Address.Prefix(24)
	if err != nil {
		return p.Subnet.Masked()
	}

	return narrowed
}
