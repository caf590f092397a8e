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

import "net/netip"

// Hosts lists the usable IPv4 host addresses of prefix, skipping the
// network and broadcast addresses and anything in exclude.
func Hosts(prefix netip.Prefix, exclude ...netip.Addr) []netip.Addr {
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil
	}

	skip := make(map[netip.Addr]struct{}, len(exclude))
	for _, a := range exclude {
		skip[a] = struct{}{}
	}

	var hosts []netip.Addr

	network := prefix.Addr()
	single := prefix.Bits() >= 31

	for a := network; prefix.Contains(a); a = a.Next() {
		if !single && (a == network || isBroadcastAddr(a, prefix)) {
			continue
		}

		if _, ok := skip[a]; ok {
			continue
		}

		hosts = append(hosts, a)
	}

	return hosts
}

func isBroadcastAddr(a netip.Addr, prefix netip.Prefix) bool {
	next := a.Next()

	return !next.IsValid() || !prefix.Contains(next)
}
