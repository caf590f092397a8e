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

//go:generate mockgen -destination=mock_discovery.go -package=discovery github.com/carverauto/threatmesh/pkg/discovery Prober,ProfileSource

package discovery

import (
	"context"
	"net/netip"
	"time"

	"github.com/carverauto/threatmesh/pkg/models"
)

// Prober asks one address whether it is an Edge Agent.
type Prober interface {
	Probe(ctx context.Context, addr netip.AddrPort) (*models.DiscoverResponse, error)
}

// ProfileSource supplies the network profile to sweep.
type ProfileSource interface {
	Resolve() models.NetworkProfile
}

// Edge is a located Edge Agent.
type Edge struct {
	Address   netip.AddrPort `json:"address"`
	BoxCode   string         `json:"box_code"`
	BoxName   string         `json:"box_name"`
	Timestamp time.Time      `json:"timestamp"`
}

// BaseURL is the HTTP root of the Edge Agent.
func (e *Edge) BaseURL() string {
	return "http://" + e.Address.String()
}
