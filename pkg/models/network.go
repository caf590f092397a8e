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

package models

import "net/netip"

// NetworkProfile describes the host's primary IPv4 attachment. It is never
// persisted.
type NetworkProfile struct {
	Address   netip.Addr   `json:"address"`
	Subnet    netip.Prefix `json:"subnet"`
	Netmask   string       `json:"netmask"`
	Gateway   netip.Addr   `json:"gateway"`
	MAC       string       `json:"mac"`
	Interface string       `json:"interface"`
}

// DefaultNetworkProfile is used when the live interface cannot be read.
func DefaultNetworkProfile() NetworkProfile {
	return NetworkProfile{
		Address: netip.MustParseAddr("192.168.1.100"),
		Subnet:  netip.MustParsePrefix("192.168.1.0/24"),
		Netmask: "255.255.255.0",
		Gateway: netip.MustParseAddr("192.168.1.1"),
		MAC:     "00:00:00:00:00:00",
	}
}
