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

// Package metrics defines the Prometheus collectors each role exposes at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "threatmesh"

const (
	ResultOK   = "ok"
	ResultFail = "fail"
)

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultFail
	}

	return ResultOK
}

// Tasks records scheduler iterations. Its Observe method matches
// scheduler.Observer.
type Tasks struct {
	Runs     *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func (t *Tasks) Observe(task string, d time.Duration, err error) {
	t.Runs.WithLabelValues(task, Result(err)).Inc()
	t.Duration.WithLabelValues(task).Observe(d.Seconds())
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func newTasks(f promauto.Factory, role string) *Tasks {
	return &Tasks{
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: role,
				Name:      "task_runs_total",
				Help:      "Background task iterations by outcome",
			},
			[]string{"task", "result"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: role,
				Name:      "task_duration_seconds",
				Help:      "Background task iteration latency",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"task"},
		),
	}
}
