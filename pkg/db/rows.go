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

package db

import (
	"time"

	"github.com/carverauto/threatmesh/pkg/models"
)

func newSummary(boxCode string) *models.BoxSummary {
	return &models.BoxSummary{
		BoxCode:   boxCode,
		Clients:   []models.ClientStats{},
		History:   []models.DailyThreats{},
		Timestamp: time.Now().UTC(),
	}
}

// bundleTime is the time rows of a bundle are recorded under.
func bundleTime(b *models.TelemetryBundle) time.Time {
	if b.Timestamp.IsZero() {
		return time.Now().UTC()
	}

	return b.Timestamp.UTC()
}

// reportTime prefers the time the Edge Agent received the report.
func reportTime(r *models.ClientReport, fallback time.Time) time.Time {
	if r.Timestamp.IsZero() {
		return fallback
	}

	return r.Timestamp.UTC()
}
