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

package netprofile

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

func TestResolveFallsBackToDefault(t *testing.T) {
	failing := func() (models.NetworkProfile, error) { return models.NetworkProfile{}, errors.New("no netlink") }

	r := NewResolverWithDetectors(logger.NewTestLogger(), failing, failing)

	_, err := r.Detect()
	require.Error(t, err)

	profile := r.Resolve()
	assert.Equal(t, models.DefaultNetworkProfile(), profile)
	assert.Equal(t, "192.168.1.100", profile.Address.String())
	assert.Equal(t, "192.168.1.0/24", profile.Subnet.String())
	assert.Equal(t, "192.168.1.1", profile.Gateway.String())
}

func TestResolveUsesFirstWorkingDetector(t *testing.T) {
	want := models.NetworkProfile{
		Address: netip.MustParseAddr("10.1.2.3"),
		Subnet:  netip.MustParsePrefix("10.1.2.0/24"),
		Gateway: netip.MustParseAddr("10.1.2.254"),
	}

	calls := 0
	first := func() (models.NetworkProfile, error) {
		calls++
		return models.NetworkProfile{}, ErrNoDefaultRoute
	}
	second := func() (models.NetworkProfile, error) { return want, nil }

	r := NewResolverWithDetectors(nil, first, second)

	assert.Equal(t, want, r.Resolve())
	assert.Equal(t, 1, calls)
}

func TestExempt(t *testing.T) {
	own := models.NetworkProfile{Subnet: netip.MustParsePrefix("100.64.10.0/24")}

	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"169.254.1.1", true},
		{"10.0.0.25", true},
		{"192.168.1.100", true},
		{"172.16.5.5", true},
		{"0.0.0.0", true},
		{"224.0.0.251", true},
		{"100.64.10.7", true},
		{"::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"100.64.11.7", false},
		{"2001:4860:4860::8888", false},
		{"::ffff:8.8.8.8", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, Exempt(netip.MustParseAddr(tt.addr), own))
		})
	}
}

func TestSweepPrefix(t *testing.T) {
	p := models.NetworkProfile{
		Address: netip.MustParseAddr("10.20.30.40"),
		Subnet:  netip.MustParsePrefix("10.20.0.0/16"),
	}
	assert.Equal(t, "10.20.30.0/24", SweepPrefix(p).String())

	p.Subnet = netip.MustParsePrefix("10.20.16.0/20")
	assert.Equal(t, "10.20.16.0/20", SweepPrefix(p).String())
}
