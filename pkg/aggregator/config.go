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

package aggregator

import (
	"path/filepath"

	"github.com/carverauto/threatmesh/pkg/db"
	"github.com/carverauto/threatmesh/pkg/kv"
	"github.com/carverauto/threatmesh/pkg/logger"
)

const (
	defaultListenAddr = ":8080"
	defaultDataDir    = "/var/lib/threatmesh/aggregator"
)

// Config is the Aggregator configuration file.
type Config struct {
	ListenAddr string    `json:"listen_addr" toml:"listen_addr"`
	DB         db.Config `json:"database" toml:"database"`
	Archive    kv.Config `json:"archive" toml:"archive"`

	// SeedExamples inserts a few example entries into an empty blocklist.
	SeedExamples bool `json:"seed_examples,omitempty" toml:"seed_examples"`

	// AdminAPIKey guards /api/admin. Empty disables administration.
	AdminAPIKey string         `json:"admin_api_key,omitempty" toml:"admin_api_key"`
	Logging     *logger.Config `json:"logging,omitempty" toml:"logging"`
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if (c.DB.Driver == "" || c.DB.Driver == db.DriverSQLite) && c.DB.Path == "" {
		c.DB.Path = filepath.Join(defaultDataDir, "threatmesh.db")
	}

	if (c.Archive.Backend == "" || c.Archive.Backend == kv.BackendFile) && c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(defaultDataDir, "archive")
	}

	if err := c.DB.Validate(); err != nil {
		return err
	}

	return c.Archive.Validate()
}
