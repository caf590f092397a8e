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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", input: `"10m"`, want: 10 * time.Minute},
		{name: "nanoseconds", input: `1000000000`, want: time.Second},
		{name: "bad string", input: `"ten minutes"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Std())
		})
	}
}

func TestDurationOrDefault(t *testing.T) {
	assert.Equal(t, time.Hour, Duration(0).OrDefault(time.Hour))
	assert.Equal(t, time.Second, Duration(time.Second).OrDefault(time.Hour))
}

func TestMergeDevicesPrefersActive(t *testing.T) {
	active := []Device{{Name: "Device-192.168.1.5", IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff"}}
	passive := []Device{
		{Name: "Unknown-192.168.1.5", IP: "192.168.1.5", MAC: "Unknown"},
		{Name: "printer.lan", IP: "192.168.1.20", MAC: "Unknown"},
		{Name: "Unknown-192.168.1.3", IP: "192.168.1.3", MAC: "Unknown"},
	}

	got := MergeDevices(active, passive)

	require.Len(t, got, 3)
	assert.Equal(t, "192.168.1.3", got[0].IP)
	assert.Equal(t, active[0], got[1])
	assert.Equal(t, "192.168.1.20", got[2].IP)
}

func TestClientReportValidate(t *testing.T) {
	ok := ClientReport{Name: "pc", IPPriv: "192.168.1.10"}
	require.NoError(t, ok.Validate())

	noName := ok
	noName.Name = ""
	require.ErrorIs(t, noName.Validate(), ErrReportNameRequired)

	noIP := ok
	noIP.IPPriv = ""
	require.ErrorIs(t, noIP.Validate(), ErrReportIPRequired)

	negative := ok
	negative.IPsBlocked = -1
	require.ErrorIs(t, negative.Validate(), ErrNegativeCounter)
}

func TestClientReportWireNames(t *testing.T) {
	b, err := json.Marshal(ClientReport{Name: "pc", IPPriv: "10.0.0.2", MAC: "m", ThreatsDetected: 2, IPsBlocked: 1})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &raw))

	for _, key := range []string{"name", "ip_priv", "MAC", "threats_detected", "ips_blocked", "timestamp"} {
		assert.Contains(t, raw, key)
	}
}

func TestDiscoverResponseRecognized(t *testing.T) {
	assert.True(t, (&DiscoverResponse{Status: StatusSuccess, BoxCode: "abc"}).Recognized())
	assert.False(t, (&DiscoverResponse{Status: StatusSuccess}).Recognized())
	assert.False(t, (&DiscoverResponse{Status: "ok", BoxCode: "abc"}).Recognized())
}

func TestActiveAddresses(t *testing.T) {
	entries := []BlockListEntry{
		{Address: "8.8.8.8", Active: true},
		{Address: "1.1.1.1", Active: false},
		{Address: "10.0.0.25", Active: true},
	}

	assert.Equal(t, []string{"8.8.8.8", "10.0.0.25"}, ActiveAddresses(entries))
}
