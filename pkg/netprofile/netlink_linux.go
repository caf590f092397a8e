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

package netprofile

import (
	"net"

	"github.com/vishvananda/netlink"

	"github.com/carverauto/threatmesh/pkg/models"
)

// platformDetector follows the IPv4 default route to its interface.
func platformDetector() (models.NetworkProfile, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return models.NetworkProfile{}, err
	}

	for i := range routes {
		route := &routes[i]

		if !isDefaultRoute(route) || route.Gw == nil {
			continue
		}

		link, err := netlink.LinkByIndex(route.LinkIndex)
		if err != nil {
			continue
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			continue
		}

		attrs := link.Attrs()

		for j := range addrs {
			profile, ok := profileFromIPNet(addrs[j].IPNet, attrs.Name, attrs.HardwareAddr)
			if !ok {
				continue
			}

			if gw, ok := addrFromIP(route.Gw); ok {
				profile.Gateway = gw
			} else {
				profile.Gateway = firstHost(profile.Subnet)
			}

			return profile, nil
		}
	}

	return models.NetworkProfile{}, ErrNoDefaultRoute
}

func isDefaultRoute(route *netlink.Route) bool {
	if route.Dst == nil {
		return true
	}

	ones, _ := route.Dst.Mask.Size()

	return ones == 0 && route.Dst.IP.Equal(net.IPv4zero)
}
