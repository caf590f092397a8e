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

package monitor

import (
	"os"
	"time"

	"github.com/carverauto/threatmesh/pkg/discovery"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	defaultEnforceInterval   = time.Second
	defaultIdleInterval      = 5 * time.Second
	defaultBlockListInterval = time.Hour
	defaultReportInterval    = 10 * time.Minute
	defaultGracePeriod       = 2 * time.Minute
	defaultDiscoveryBackoff  = 60 * time.Second
	defaultTerminateWait     = 3 * time.Second
	defaultRequestTimeout    = 10 * time.Second
	defaultDataDir           = "/var/lib/threatmesh/monitor"
)

// Config is the Monitor Agent configuration file.
type Config struct {
	ClientName        string          `json:"client_name,omitempty" toml:"client_name"`
	EdgePort          uint16          `json:"edge_port,omitempty" toml:"edge_port"`
	EnforceInterval   models.Duration `json:"enforce_interval,omitempty" toml:"enforce_interval"`
	IdleInterval      models.Duration `json:"idle_interval,omitempty" toml:"idle_interval"`
	BlockListInterval models.Duration `json:"blocklist_interval,omitempty" toml:"blocklist_interval"`
	ReportInterval    models.Duration `json:"report_interval,omitempty" toml:"report_interval"`
	GracePeriod       models.Duration `json:"grace_period,omitempty" toml:"grace_period"`
	DiscoveryBackoff  models.Duration `json:"discovery_backoff,omitempty" toml:"discovery_backoff"`
	TerminateWait     models.Duration `json:"terminate_wait,omitempty" toml:"terminate_wait"`
	RequestTimeout    models.Duration `json:"request_timeout,omitempty" toml:"request_timeout"`
	Capture           bool            `json:"capture,omitempty" toml:"capture"`
	CaptureInterface  string          `json:"capture_interface,omitempty" toml:"capture_interface"`
	GeoIPPath         string          `json:"geoip_path,omitempty" toml:"geoip_path"`
	MetricsAddr       string          `json:"metrics_addr,omitempty" toml:"metrics_addr"`
	KV                kv.Config       `json:"kv" toml:"kv"`
	Logging           *logger.Config  `json:"logging,omitempty" toml:"logging"`
}

func (c *Config) Validate() error {
	if c.ClientName == "" {
		if host, err := os.Hostname(); err == nil {
			c.ClientName = host
		} else {
			c.ClientName = "monitor"
		}
	}

	if c.EdgePort == 0 {
		c.EdgePort = discovery.DefaultPort
	}

	c.EnforceInterval = models.Duration(c.EnforceInterval.OrDefault(defaultEnforceInterval))
	c.IdleInterval = models.Duration(c.IdleInterval.OrDefault(defaultIdleInterval))
	c.BlockListInterval = models.Duration(c.BlockListInterval.OrDefault(defaultBlockListInterval))
	c.ReportInterval = models.Duration(c.ReportInterval.OrDefault(defaultReportInterval))
	c.GracePeriod = models.Duration(c.GracePeriod.OrDefault(defaultGracePeriod))
	c.DiscoveryBackoff = models.Duration(c.DiscoveryBackoff.OrDefault(defaultDiscoveryBackoff))
	c.TerminateWait = models.Duration(c.TerminateWait.OrDefault(defaultTerminateWait))
	c.RequestTimeout = models.Duration(c.RequestTimeout.OrDefault(defaultRequestTimeout))

	if c.KV.Backend == "" || c.KV.Backend == kv.BackendFile {
		if c.KV.Path == "" {
			c.KV.Path = defaultDataDir
		}
	}

	return c.KV.Validate()
}
