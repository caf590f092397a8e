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

import "time"

// BlockListEntry is a canonical blocklist row held by the Aggregator.
type BlockListEntry struct {
	Address   string    `json:"address"`
	Reason    string    `json:"reason,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// BlockListSnapshot is the persisted cache document kept by Edge and Monitor agents.
type BlockListSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	IPs       []string  `json:"ips"`
}

// ActiveAddresses returns the addresses of active entries in order.
func ActiveAddresses(entries []BlockListEntry) []string {
	out := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.Active {
			out = append(out, e.Address)
		}
	}

	return out
}
