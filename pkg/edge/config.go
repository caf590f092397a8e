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
	"os"
	"time"

	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	defaultListenAddr        = ":5001"
	defaultScanInterval      = 10 * time.Minute
	defaultBlockListInterval = 24 * time.Hour
	defaultRequestTimeout    = 10 * time.Second
	defaultPublicIPURL       = "https://api.ipify.org"
	defaultScanTimeout       = 500 * time.Millisecond
	defaultScanConcurrency   = 64
	defaultDataDir           = "/var/lib/threatmesh/edge"
)

// Config is the Edge Agent configuration file.
type Config struct {
	ListenAddr        string          `json:"listen_addr" toml:"listen_addr"`
	AggregatorURL     string          `json:"aggregator_url" toml:"aggregator_url"`
	DeviceName        string          `json:"device_name,omitempty" toml:"device_name"`
	ScanInterval      models.Duration `json:"scan_interval,omitempty" toml:"scan_interval"`
	BlockListInterval models.Duration `json:"blocklist_interval,omitempty" toml:"blocklist_interval"`
	RequestTimeout    models.Duration `json:"request_timeout,omitempty" toml:"request_timeout"`
	PublicIPURL       string          `json:"public_ip_url,omitempty" toml:"public_ip_url"`
	ScanPorts         []int           `json:"scan_ports,omitempty" toml:"scan_ports"`
	ScanTimeout       models.Duration `json:"scan_timeout,omitempty" toml:"scan_timeout"`
	ScanConcurrency   int             `json:"scan_concurrency,omitempty" toml:"scan_concurrency"`

	// DNSServers used for reverse lookups; empty means /etc/resolv.conf.
	DNSServers []string       `json:"dns_servers,omitempty" toml:"dns_servers"`
	KV         kv.Config      `json:"kv" toml:"kv"`
	Logging    *logger.Config `json:"logging,omitempty" toml:"logging"`
}

// Validate applies defaults and checks required fields.
func (c *Config) Validate() error {
	if c.AggregatorURL == "" {
		return errAggregatorURLRequired
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			c.DeviceName = host
		}
	}

	c.ScanInterval = models.Duration(c.ScanInterval.OrDefault(defaultScanInterval))
	c.BlockListInterval = models.Duration(c.BlockListInterval.OrDefault(defaultBlockListInterval))
	c.RequestTimeout = models.Duration(c.RequestTimeout.OrDefault(defaultRequestTimeout))
	c.ScanTimeout = models.Duration(c.ScanTimeout.OrDefault(defaultScanTimeout))

	if c.PublicIPURL == "" {
		c.PublicIPURL = defaultPublicIPURL
	}

	if c.ScanConcurrency <= 0 {
		c.ScanConcurrency = defaultScanConcurrency
	}

	if c.KV.Backend == "" || c.KV.Backend == kv.BackendFile {
		if c.KV.Path == "" {
			c.KV.Path = defaultDataDir
		}
	}

	return c.KV.Validate()
}
