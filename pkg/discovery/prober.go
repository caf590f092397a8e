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

package discovery

import (
	"context"
	"net/netip"

	"github.com/carverauto/threatmesh/pkg/api"
	"github.com/carverauto/threatmesh/pkg/models"
)

// HTTPProber probes GET /api/discover. The caller's context bounds each probe.
type HTTPProber struct{}

func (HTTPProber) Probe(ctx context.Context, addr netip.AddrPort) (*models.DiscoverResponse, error) {
	client, err := api.NewClient(addr.String())
	if err != nil {
		return nil, err
	}

	return client.Discover(ctx)
}
