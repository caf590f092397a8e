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

//go:build !linux

package scan

import (
	"context"
	"net"
	"net/netip"

	"github.com/carverauto/threatmesh/pkg/logger"
)

type RawARPProber struct{}

func NewARPProber(_ ARPConfig, _ logger.Logger) *RawARPProber {
	return &RawARPProber{}
}

func (*RawARPProber) Probe(context.Context, string, netip.Addr, []netip.Addr) (map[netip.Addr]net.HardwareAddr, error) {
	return nil, ErrARPUnsupported
}
