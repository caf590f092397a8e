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

// BoxReport is one Edge Agent host record as stored by the Aggregator.
type BoxReport struct {
	BoxCode    string    `json:"box_code"`
	DeviceName string    `json:"device_name"`
	IPPrivate  string    `json:"ip_private"`
	IPPublic   *string   `json:"ip_public"`
	MACAddress string    `json:"mac_address"`
	Latency    *float64  `json:"latency"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeviceObservation is a device row with the time its bundle was taken.
type DeviceObservation struct {
	Name      string    `json:"device_name"`
	IP        string    `json:"ip_address"`
	MAC       string    `json:"mac_address"`
	Timestamp time.Time `json:"timestamp"`
}

type SecurityTotals struct {
	TotalReports int64 `json:"total_reports"`
	TotalThreats int64 `json:"total_threats"`
	TotalBlocked int64 `json:"total_blocked"`
}

// ClientStats aggregates every report from one Monitor Agent.
type ClientStats struct {
	Name            string    `json:"client_name"`
	IPPrivate       string    `json:"ip_private"`
	MAC             string    `json:"mac_address"`
	ThreatsDetected int64     `json:"threats_detected"`
	IPsBlocked      int64     `json:"ips_blocked"`
	LastReport      time.Time `json:"last_report"`
}

type DailyThreats struct {
	Date            string `json:"date"`
	ThreatsDetected int64  `json:"threats_detected"`
	IPsBlocked      int64  `json:"ips_blocked"`
}

// BoxSummary is the dashboard view of one Edge Agent.
type BoxSummary struct {
	BoxCode    string         `json:"box_code"`
	BoxInfo    *BoxReport     `json:"box_info"`
	Security   SecurityTotals `json:"security_status"`
	LastUpdate *time.Time     `json:"last_update"`
	Clients    []ClientStats  `json:"client_stats"`
	History    []DailyThreats `json:"threats_history"`
	Timestamp  time.Time      `json:"timestamp"`
}
