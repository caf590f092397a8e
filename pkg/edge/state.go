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

package edge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	// DevicesKey holds the last inventory snapshot.
	DevicesKey = "devices"
	// ReportsKey holds Monitor reports waiting for the next push.
	ReportsKey = "reports"
)

// ReportQueue buffers Monitor reports between pushes. Every mutation is
// persisted before it is acknowledged.
type ReportQueue struct {
	mu      sync.Mutex
	reports []models.ClientReport
	store   kv.KVStore
	now     func() time.Time
}

// NewReportQueue returns an empty queue; Load restores the persisted one.
func NewReportQueue(store kv.KVStore) *ReportQueue {
	return &ReportQueue{store: store, now: time.Now}
}

// Load restores the persisted queue. A missing document leaves the queue
// empty and writes an empty one so it exists on disk.
func (q *ReportQueue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var doc models.ReportQueue

	found, err := kv.GetJSON(ctx, q.store, ReportsKey, &doc)
	if err != nil {
		return fmt.Errorf("failed to load report queue: %w", err)
	}

	if !found {
		q.reports = nil
		return q.persistLocked(ctx)
	}

	q.reports = doc.Reports

	return nil
}

// Append queues r and persists the queue. On a persistence failure the
// report is not kept.
func (q *ReportQueue) Append(ctx context.Context, r models.ClientReport) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.reports = append(q.reports, r)

	if err := q.persistLocked(ctx); err != nil {
		q.reports = q.reports[:len(q.reports)-1]
		return err
	}

	return nil
}

// Pending returns a copy of the queued reports.
func (q *ReportQueue) Pending() []models.ClientReport {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.ClientReport, len(q.reports))
	copy(out, q.reports)

	return out
}

func (q *ReportQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.reports)
}

// Drain removes the first n reports, the ones a successful push carried.
// Reports appended while the push was in flight stay queued.
func (q *ReportQueue) Drain(ctx context.Context, n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 {
		return nil
	}

	if n > len(q.reports) {
		n = len(q.reports)
	}

	remaining := make([]models.ClientReport, len(q.reports)-n)
	copy(remaining, q.reports[n:])
	q.reports = remaining

	return q.persistLocked(ctx)
}

func (q *ReportQueue) persistLocked(ctx context.Context) error {
	reports := q.reports
	if reports == nil {
		reports = []models.ClientReport{}
	}

	doc := models.ReportQueue{Timestamp: q.now().UTC(), Reports: reports}
	if err := kv.PutJSON(ctx, q.store, ReportsKey, doc); err != nil {
		return fmt.Errorf("failed to persist report queue: %w", err)
	}

	return nil
}

// Inventory is the current device list, replaced wholesale on every scan.
type Inventory struct {
	mu    sync.RWMutex
	snap  models.DeviceSnapshot
	store kv.KVStore
}

func NewInventory(store kv.KVStore) *Inventory {
	return &Inventory{store: store, snap: models.DeviceSnapshot{Devices: []models.Device{}}}
}

func (i *Inventory) Load(ctx context.Context) error {
	var snap models.DeviceSnapshot

	found, err := kv.GetJSON(ctx, i.store, DevicesKey, &snap)
	if err != nil {
		return fmt.Errorf("failed to load device inventory: %w", err)
	}

	if !found {
		return nil
	}

	if snap.Devices == nil {
		snap.Devices = []models.Device{}
	}

	i.mu.Lock()
	i.snap = snap
	i.mu.Unlock()

	return nil
}

// Replace installs devices as the inventory and persists it.
func (i *Inventory) Replace(ctx context.Context, devices []models.Device, at time.Time) error {
	if devices == nil {
		devices = []models.Device{}
	}

	snap := models.DeviceSnapshot{Timestamp: at.UTC(), Devices: devices}

	i.mu.Lock()
	i.snap = snap
	i.mu.Unlock()

	if err := kv.PutJSON(ctx, i.store, DevicesKey, snap); err != nil {
		return fmt.Errorf("failed to persist device inventory: %w", err)
	}

	return nil
}

// Snapshot returns the inventory. The device slice must not be modified.
func (i *Inventory) Snapshot() models.DeviceSnapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.snap
}
