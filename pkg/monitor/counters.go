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

import "sync"

// Counters accumulate detections between successful report deliveries.
type Counters struct {
	mu      sync.Mutex
	threats int64
	blocked int64
}

func (c *Counters) AddThreat() {
	c.mu.Lock()
	c.threats++
	c.mu.Unlock()
}

func (c *Counters) AddBlocked() {
	c.mu.Lock()
	c.blocked++
	c.mu.Unlock()
}

func (c *Counters) Snapshot() (threats, blocked int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.threats, c.blocked
}

// Subtract removes amounts that were delivered. Events counted while the
// delivery was in flight remain.
func (c *Counters) Subtract(threats, blocked int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.threats -= threats
	c.blocked -= blocked

	if c.threats < 0 {
		c.threats = 0
	}

	if c.blocked < 0 {
		c.blocked = 0
	}
}
