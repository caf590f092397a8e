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
	"errors"
	"time"
)

var (
	ErrReportNameRequired = errors.New("report name is required")
	ErrReportIPRequired   = errors.New("report ip_priv is required")
	ErrNegativeCounter    = errors.New("report counters must be non-negative")
	ErrIdentityRequired   = errors.New("box_code is required")
)

// ClientReport carries the counters a Monitor Agent accumulated since its
// last successful delivery.
type ClientReport struct {
	Name            string    `json:"name"`
	IPPriv          string    `json:"ip_priv"`
	MAC             string    `json:"MAC"`
	ThreatsDetected int64     `json:"threats_detected"`
	IPsBlocked      int64     `json:"ips_blocked"`
	Timestamp       time.Time `json:"timestamp"`
}

func (r *ClientReport) Validate() error {
	if r.Name == "" {
		return ErrReportNameRequired
	}

	if r.IPPriv == "" {
		return ErrReportIPRequired
	}

	if r.ThreatsDetected < 0 || r.IPsBlocked < 0 {
		return ErrNegativeCounter
	}

	return nil
}

// ReportQueue is the persisted document holding reports waiting for the next push.
type ReportQueue struct {
	Timestamp time.Time      `json:"timestamp"`
	Reports   []ClientReport `json:"reports"`
}

// BoxData describes the Edge Agent host in a telemetry push.
type BoxData struct {
	DeviceName string   `json:"device_name"`
	IPPrivate  string   `json:"ip_private"`
	IPPublic   *string  `json:"ip_public"`
	MACAddress string   `json:"mac_address"`
	Latency    *float64 `json:"latency"`
}

// TelemetryBundle is what an Edge Agent pushes to the Aggregator each cycle.
type TelemetryBundle struct {
	BoxCode       string         `json:"box_code"`
	Timestamp     time.Time      `json:"timestamp"`
	BoxData       BoxData        `json:"box_data"`
	Devices       []Device       `json:"devices"`
	ClientReports []ClientReport `json:"client_reports"`
}

func (b *TelemetryBundle) Validate() error {
	if b.BoxCode == "" {
		return ErrIdentityRequired
	}

	return nil
}
