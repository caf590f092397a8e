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

import (
	"net/netip"
	"sort"
	"time"
)

// Device is one entry of an Edge Agent's inventory.
type Device struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
}

// DeviceSnapshot is the persisted inventory document.
type DeviceSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Devices   []Device  `json:"devices"`
}

// MergeDevices combines an active and a passive scan. Records are keyed by
// IP; an active record replaces a passive one for the same address. The
// result is sorted by address.
func MergeDevices(active, passive []Device) []Device {
	byIP := make(map[string]Device, len(active)+len(passive))

	for _, d := range passive {
		if d.IP == "" {
			continue
		}

		byIP[d.IP] = d
	}

	for _, d := range active {
		if d.IP == "" {
			continue
		}

		byIP[d.IP] = d
	}

	out := make([]Device, 0, len(byIP))
	for _, d := range byIP {
		out = append(out, d)
	}

	sortDevices(out)

	return out
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		a, errA := netip.ParseAddr(devices[i].IP)
		b, errB := netip.ParseAddr(devices[j].IP)

		if errA != nil || errB != nil {
			return devices[i].IP < devices[j].IP
		}

		return a.Less(b)
	})
}
