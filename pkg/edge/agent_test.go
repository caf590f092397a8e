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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/threatmesh/pkg/api"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

var (
	errUpstreamDown = errors.New("connection refused")
	errDiskFull     = errors.New("no space left on device")
)

type testAgent struct {
	*Agent
	store    kv.KVStore
	scanner  *MockScanner
	upstream *MockUpstream
	profiles *MockProfileSource
}

func newTestAgent(t *testing.T, store kv.KVStore) *testAgent {
	t.Helper()

	ctrl := gomock.NewController(t)

	if store == nil {
		var err error

		store, err = kv.NewFileStore(t.TempDir())
		require.NoError(t, err)
	}

	ta := &testAgent{
		store:    store,
		scanner:  NewMockScanner(ctrl),
		upstream: NewMockUpstream(ctrl),
		profiles: NewMockProfileSource(ctrl),
	}

	cfg := &Config{AggregatorURL: "http://aggregator:8080", DeviceName: "edge-lab"}
	cfg.KV.Path = t.TempDir()
	require.NoError(t, cfg.Validate())

	agent, err := NewAgent(cfg, store, Deps{
		Scanner:  ta.scanner,
		Upstream: ta.upstream,
		Profiles: ta.profiles,
	}, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, agent.Init(context.Background()))
	ta.Agent = agent

	return ta
}

func (ta *testAgent) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ta.Router().ServeHTTP(rec, req)

	return rec
}

func validReport() models.ClientReport {
	return models.ClientReport{Name: "laptop", IPPriv: "192.168.1.20", MAC: "aa:bb:cc:dd:ee:ff", ThreatsDetected: 3, IPsBlocked: 2}
}

func TestBlockListIsEmptyArrayBeforeRefresh(t *testing.T) {
	ta := newTestAgent(t, nil)

	rec := ta.do(t, http.MethodGet, api.PathBlockList, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["data"]))
	assert.JSONEq(t, `"success"`, string(raw["status"]))
}

func TestDiscoverServesIdentity(t *testing.T) {
	ta := newTestAgent(t, nil)

	rec := ta.do(t, http.MethodGet, api.PathDiscover, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.DiscoverResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	id, _ := ta.Identity()
	assert.True(t, resp.Recognized())
	assert.Equal(t, id, resp.BoxCode)
	assert.Equal(t, "edge-lab", resp.BoxName)
}

func TestIdentitySurvivesRestart(t *testing.T) {
	store, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	first := newTestAgent(t, store)
	id, _ := first.Identity()
	require.NotEmpty(t, id)

	second := newTestAgent(t, store)
	again, _ := second.Identity()
	assert.Equal(t, id, again)
}

func TestIdentityStoreCreatesOnce(t *testing.T) {
	store, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	ids := NewIdentityStore(store)
	calls := 0
	ids.newID = func() string {
		calls++
		return "box-123"
	}

	for i := 0; i < 3; i++ {
		id, err := ids.Ensure(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "box-123", id)
	}

	assert.Equal(t, 1, calls)
}

func TestReportIsQueuedAndPersisted(t *testing.T) {
	ta := newTestAgent(t, nil)

	body, err := json.Marshal(validReport())
	require.NoError(t, err)

	rec := ta.do(t, http.MethodPost, api.PathReport, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc models.ReportQueue

	found, err := kv.GetJSON(context.Background(), ta.store, ReportsKey, &doc)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, doc.Reports, 1)
	assert.Equal(t, "laptop", doc.Reports[0].Name)
	assert.False(t, doc.Reports[0].Timestamp.IsZero())
}

func TestMalformedReportsAreRejected(t *testing.T) {
	ta := newTestAgent(t, nil)

	missingName := validReport()
	missingName.Name = ""

	negative := validReport()
	negative.IPsBlocked = -1

	cases := map[string][]byte{
		"empty body":   nil,
		"not json":     []byte("{nope"),
		"missing name": mustJSON(t, missingName),
		"negative":     mustJSON(t, negative),
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, api.PathReport, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Zero(t, ta.queue.Len())
}

func TestReportPersistFailureIsRolledBack(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	files, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	var failPuts atomic.Bool

	store := kv.NewMockKVStore(ctrl)
	store.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(files.Get).AnyTimes()
	store.EXPECT().Keys(gomock.Any(), gomock.Any()).DoAndReturn(files.Keys).AnyTimes()
	store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, key string, value []byte) error {
			if failPuts.Load() {
				return errDiskFull
			}

			return files.Put(ctx, key, value)
		}).AnyTimes()

	ta := newTestAgent(t, store)

	kept := validReport()
	require.NoError(t, ta.SubmitClientReport(ctx, &kept))

	failPuts.Store(true)

	rejected := validReport()
	rejected.Name = "rejected"

	rec := ta.do(t, http.MethodPost, api.PathReport, mustJSON(t, rejected))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, ta.queue.Len())

	failPuts.Store(false)

	var doc models.ReportQueue

	found, err := kv.GetJSON(ctx, files, ReportsKey, &doc)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, doc.Reports, 1)
	assert.Equal(t, "laptop", doc.Reports[0].Name)

	profile := models.DefaultNetworkProfile()
	ta.profiles.EXPECT().Resolve().Return(profile)
	ta.scanner.EXPECT().Scan(gomock.Any(), profile).Return(nil, nil)
	ta.upstream.EXPECT().SubmitTelemetry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, b *models.TelemetryBundle) error {
			require.Len(t, b.ClientReports, 1)
			assert.Equal(t, "laptop", b.ClientReports[0].Name)

			return nil
		})

	require.NoError(t, ta.ScanAndPush(ctx))
	assert.Zero(t, ta.queue.Len())
}

func TestPushDrainsQueueOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	ta := newTestAgent(t, nil)

	r := validReport()
	require.NoError(t, ta.SubmitClientReport(ctx, &r))

	profile := models.DefaultNetworkProfile()
	ta.profiles.EXPECT().Resolve().Return(profile).Times(2)
	ta.scanner.EXPECT().Scan(gomock.Any(), profile).Return([]models.Device{{Name: "Device-192.168.1.5", IP: "192.168.1.5", MAC: "aa:aa:aa:aa:aa:aa"}}, nil).Times(2)

	gomock.InOrder(
		ta.upstream.EXPECT().SubmitTelemetry(gomock.Any(), gomock.Any()).Return(errUpstreamDown),
		ta.upstream.EXPECT().SubmitTelemetry(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b *models.TelemetryBundle) error {
				assert.Len(t, b.ClientReports, 1)
				assert.Len(t, b.Devices, 1)
				assert.NotEmpty(t, b.BoxCode)

				late := validReport()
				late.Name = "arrived-during-push"
				require.NoError(t, ta.SubmitClientReport(ctx, &late))

				return nil
			}),
	)

	require.Error(t, ta.ScanAndPush(ctx))
	assert.Equal(t, 1, ta.queue.Len())

	require.NoError(t, ta.ScanAndPush(ctx))

	pending := ta.queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "arrived-during-push", pending[0].Name)
}

func TestScanFailureKeepsInventory(t *testing.T) {
	ctx := context.Background()
	ta := newTestAgent(t, nil)

	devices := []models.Device{{Name: "Device-192.168.1.5", IP: "192.168.1.5", MAC: "aa:aa:aa:aa:aa:aa"}}
	require.NoError(t, ta.inventory.Replace(ctx, devices, time.Now()))

	ta.profiles.EXPECT().Resolve().Return(models.DefaultNetworkProfile())
	ta.scanner.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(nil, errors.New("permission denied"))
	ta.upstream.EXPECT().SubmitTelemetry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, b *models.TelemetryBundle) error {
			assert.Equal(t, devices, b.Devices)
			return nil
		})

	require.NoError(t, ta.ScanAndPush(ctx))
	assert.Equal(t, devices, ta.Devices().Devices)
}

func TestRefreshFailureKeepsPreviousList(t *testing.T) {
	ctx := context.Background()
	ta := newTestAgent(t, nil)

	gomock.InOrder(
		ta.upstream.EXPECT().FetchBlockList(gomock.Any()).Return([]string{"8.8.8.8", "10.0.0.25"}, nil),
		ta.upstream.EXPECT().FetchBlockList(gomock.Any()).Return(nil, errUpstreamDown),
	)

	require.NoError(t, ta.RefreshBlockList(ctx))
	require.Error(t, ta.RefreshBlockList(ctx))

	assert.Equal(t, []string{"10.0.0.25", "8.8.8.8"}, ta.BlockList())

	// The persisted cache is what a restarted agent serves.
	restarted := newTestAgent(t, ta.store)
	assert.Equal(t, []string{"10.0.0.25", "8.8.8.8"}, restarted.BlockList())
}

func TestDevicesEndpoint(t *testing.T) {
	ta := newTestAgent(t, nil)

	devices := []models.Device{{Name: "printer", IP: "192.168.1.9", MAC: "Unknown"}}
	require.NoError(t, ta.inventory.Replace(context.Background(), devices, time.Now()))

	rec := ta.do(t, http.MethodGet, pathDevices, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap models.DeviceSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, devices, snap.Devices)
}

func TestGatewayLatencyFallsBackToTCP(t *testing.T) {
	origPing, origDial := pingGateway, dialGateway
	t.Cleanup(func() { pingGateway, dialGateway = origPing, origDial })

	pingGateway = func(context.Context, string) (time.Duration, error) {
		return 0, errors.New("operation not permitted")
	}

	var dialed string

	dialGateway = func(_ context.Context, address string) (net.Conn, error) {
		dialed = address
		client, server := net.Pipe()
		_ = server.Close()

		return client, nil
	}

	_, err := GatewayLatency{}.Measure(context.Background(), netip.MustParseAddr("192.168.1.1"))
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1:80", dialed)
}

func TestGatewayLatencyUnavailable(t *testing.T) {
	origPing, origDial := pingGateway, dialGateway
	t.Cleanup(func() { pingGateway, dialGateway = origPing, origDial })

	pingGateway = func(context.Context, string) (time.Duration, error) { return 0, errLatencyUnavailable }
	dialGateway = func(context.Context, string) (net.Conn, error) { return nil, errors.New("timeout") }

	_, err := GatewayLatency{}.Measure(context.Background(), netip.MustParseAddr("192.168.1.1"))
	require.ErrorIs(t, err, errLatencyUnavailable)

	_, err = GatewayLatency{}.Measure(context.Background(), netip.Addr{})
	require.ErrorIs(t, err, errNoGateway)
}

func TestHTTPPublicIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("203.0.113.7\n"))
	}))
	t.Cleanup(srv.Close)

	ip, err := NewHTTPPublicIP(srv.URL, time.Second).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	t.Cleanup(bad.Close)

	_, err = NewHTTPPublicIP(bad.URL, time.Second).Lookup(context.Background())
	require.ErrorIs(t, err, errNoPublicIP)
}

func TestBundleCarriesHostTelemetry(t *testing.T) {
	ta := newTestAgent(t, nil)
	ta.deps.PublicIP = staticIP("203.0.113.7")
	ta.deps.Latency = fixedLatency(1500 * time.Microsecond)

	b := ta.buildBundle(context.Background(), models.DefaultNetworkProfile(), nil)

	require.NotNil(t, b.BoxData.IPPublic)
	require.NotNil(t, b.BoxData.Latency)
	assert.Equal(t, "203.0.113.7", *b.BoxData.IPPublic)
	assert.InDelta(t, 1.5, *b.BoxData.Latency, 0.001)
	assert.Equal(t, "192.168.1.100", b.BoxData.IPPrivate)
	assert.NotNil(t, b.ClientReports)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	require.ErrorIs(t, cfg.Validate(), errAggregatorURLRequired)

	cfg = &Config{AggregatorURL: "http://aggregator:8080"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaultScanInterval, cfg.ScanInterval.Std())
	assert.Equal(t, defaultBlockListInterval, cfg.BlockListInterval.Std())
	assert.Equal(t, defaultPublicIPURL, cfg.PublicIPURL)
	assert.Equal(t, defaultDataDir, cfg.KV.Path)
}

type staticIP string

func (s staticIP) Lookup(context.Context) (string, error) { return string(s), nil }

type fixedLatency time.Duration

func (f fixedLatency) Measure(context.Context, netip.Addr) (time.Duration, error) {
	return time.Duration(f), nil
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return b
}
