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

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DiscoverResponse is the Edge Agent's identity answer.
type DiscoverResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	BoxName   string    `json:"box_name"`
	BoxCode   string    `json:"box_code"`
}

// Recognized reports whether the response came from an Edge Agent.
func (r *DiscoverResponse) Recognized() bool {
	return r.Status == StatusSuccess && r.BoxCode != ""
}

// BlockListResponse is the blocklist wire format served by Edge and Aggregator.
type BlockListResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      []string  `json:"data"`
}

// MessageResponse acknowledges a submitted report or bundle.
type MessageResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
