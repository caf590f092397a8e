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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Edge struct {
	Tasks          *Tasks
	Scans          *prometheus.CounterVec
	DevicesFound   prometheus.Gauge
	Pushes         *prometheus.CounterVec
	BlockListSize  prometheus.Gauge
	BlockListPulls *prometheus.CounterVec
	ReportsQueued  prometheus.Gauge
	ReportsIn      *prometheus.CounterVec
	LatencyMillis  prometheus.Gauge
}

func NewEdge(reg prometheus.Registerer) *Edge {
	f := promauto.With(reg)

	return &Edge{
		Tasks: newTasks(f, "edge"),
		Scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "scans_total",
			Help: "Network scans by outcome",
		}, []string{"result"}),
		DevicesFound: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "devices",
			Help: "Devices in the current inventory",
		}),
		Pushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "telemetry_pushes_total",
			Help: "Telemetry pushes to the aggregator by outcome",
		}, []string{"result"}),
		BlockListSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "blocklist_entries",
			Help: "Addresses in the cached blocklist",
		}),
		BlockListPulls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "blocklist_refreshes_total",
			Help: "Blocklist refreshes from the aggregator by outcome",
		}, []string{"result"}),
		ReportsQueued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "reports_queued",
			Help: "Monitor reports waiting for the next push",
		}),
		ReportsIn: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "client_reports_total",
			Help: "Monitor reports received by outcome",
		}, []string{"result"}),
		LatencyMillis: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "edge",
			Name: "gateway_latency_milliseconds",
			Help: "Last measured latency to the default gateway",
		}),
	}
}

type Monitor struct {
	Tasks               *Tasks
	ThreatsDetected     prometheus.Counter
	ProcessesTerminated *prometheus.CounterVec
	DiscoveryAttempts   *prometheus.CounterVec
	BlockListSize       prometheus.Gauge
	ReportsSent         *prometheus.CounterVec
	Enforcing           prometheus.Gauge
	PacketsInspected    prometheus.Counter
}

func NewMonitor(reg prometheus.Registerer) *Monitor {
	f := promauto.With(reg)

	return &Monitor{
		Tasks: newTasks(f, "monitor"),
		ThreatsDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "threats_detected_total",
			Help: "Connections to blocked addresses observed",
		}),
		ProcessesTerminated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "processes_terminated_total",
			Help: "Process terminations by outcome",
		}, []string{"result"}),
		DiscoveryAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "discovery_attempts_total",
			Help: "Edge agent discovery attempts by outcome",
		}, []string{"result"}),
		BlockListSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "blocklist_entries",
			Help: "Addresses in the cached blocklist",
		}),
		ReportsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "reports_sent_total",
			Help: "Counter reports delivered to the edge agent by outcome",
		}, []string{"result"}),
		Enforcing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "enforcing",
			Help: "1 while an edge agent is known, 0 while discovering",
		}),
		PacketsInspected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "monitor",
			Name: "packets_inspected_total",
			Help: "Captured packets decoded by the passive detector",
		}),
	}
}

type Aggregator struct {
	BundlesIngested *prometheus.CounterVec
	StoreFailures   prometheus.Counter
	BlockListSize   prometheus.Gauge
	BlockListServes prometheus.Counter
}

func NewAggregator(reg prometheus.Registerer) *Aggregator {
	f := promauto.With(reg)

	return &Aggregator{
		BundlesIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregator",
			Name: "bundles_ingested_total",
			Help: "Telemetry bundles accepted, by storage outcome",
		}, []string{"storage"}),
		StoreFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregator",
			Name: "structured_store_failures_total",
			Help: "Bundles that reached the archive but not structured storage",
		}),
		BlockListSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "aggregator",
			Name: "blocklist_active_entries",
			Help: "Active canonical blocklist entries at the last read",
		}),
		BlockListServes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregator",
			Name: "blocklist_requests_total",
			Help: "Blocklist requests served",
		}),
	}
}
