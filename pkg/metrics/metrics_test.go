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

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCollectorsRegisterOnSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewEdge(NewRegistry())
		NewEdge(NewRegistry())
		NewMonitor(NewRegistry())
		NewAggregator(NewRegistry())
	})
}

func TestTasksObserve(t *testing.T) {
	reg := NewRegistry()
	m := NewMonitor(reg)

	m.Tasks.Observe("report", 10*time.Millisecond, nil)
	m.Tasks.Observe("report", 10*time.Millisecond, errors.New("edge down"))
	m.Tasks.Observe("report", 10*time.Millisecond, errors.New("edge down"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Tasks.Runs.WithLabelValues("report", ResultOK)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Tasks.Runs.WithLabelValues("report", ResultFail)), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewAggregator(reg)
	m.BundlesIngested.WithLabelValues("structured").Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `threatmesh_aggregator_bundles_ingested_total{storage="structured"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
