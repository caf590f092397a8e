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

// Package netprofile derives the host's primary IPv4 attachment.
package netprofile

import (
	"errors"
	"net"
	"net/netip"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

var (
	ErrNoDefaultRoute = errors.New("no IPv4 default route")
	ErrNoIPv4Address  = errors.New("no usable IPv4 interface address")
)

// Detector reads the live network configuration.
type Detector func() (models.NetworkProfile, error)

// Resolver resolves the network profile in two tiers: the live interface
// first, then the static default profile.
type Resolver struct {
	detectors []Detector
	logger    logger.Logger
}

// NewResolver uses the platform route table first and the interface list
// second.
func NewResolver(log logger.Logger) *Resolver {
	return NewResolverWithDetectors(log, platformDetector, detectFromInterfaces)
}

func NewResolverWithDetectors(log logger.Logger, detectors ...Detector) *Resolver {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Resolver{detectors: detectors, logger: log}
}

// Detect returns the first profile a detector produces.
func (r *Resolver) Detect() (models.NetworkProfile, error) {
	var errs []error

	for _, detect := range r.detectors {
		profile, err := detect()
		if err == nil {
			return profile, nil
		}

		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return models.NetworkProfile{}, ErrNoIPv4Address
	}

	return models.NetworkProfile{}, errors.Join(errs...)
}

// Resolve never fails: when detection fails it logs and returns the default
// profile. Profiles are recomputed on every call.
func (r *Resolver) Resolve() models.NetworkProfile {
	profile, err := r.Detect()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Network detection failed, using default profile")

		return models.DefaultNetworkProfile()
	}

	return profile
}

// detectFromInterfaces picks the first up, non-loopback interface with an
// IPv4 address and assumes the gateway is the first host of its subnet.
func detectFromInterfaces() (models.NetworkProfile, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return models.NetworkProfile{}, err
	}

	for i := range ifaces {
		ifi := &ifaces[i]

		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}

		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}

			profile, ok := profileFromIPNet(ipnet, ifi.Name, ifi.HardwareAddr)
			if !ok {
				continue
			}

			profile.Gateway = firstHost(profile.Subnet)

			return profile, nil
		}
	}

	return models.NetworkProfile{}, ErrNoIPv4Address
}

func profileFromIPNet(ipnet *net.IPNet, ifname string, mac net.HardwareAddr) (models.NetworkProfile, bool) {
	ip4 := ipnet.IP.To4()
	if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
		return models.NetworkProfile{}, false
	}

	addr, _ := netip.AddrFromSlice(ip4)
	ones, _ := ipnet.Mask.Size()

	macStr := mac.String()
	if macStr == "" {
		macStr = models.DefaultNetworkProfile().MAC
	}

	return models.NetworkProfile{
		Address:   addr,
		Subnet:    netip.PrefixFrom(addr, ones).Masked(),
		Netmask:   net.IP(net.CIDRMask(ones, 32)).String(),
		MAC:       macStr,
		Interface: ifname,
	}, true
}

func firstHost(p netip.Prefix) netip.Addr {
	return p.Masked().Addr().Next()
}
