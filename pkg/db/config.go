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

package db

import (
	"context"
	"fmt"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultPostgresPort = 5432
	defaultSSLMode      = "disable"
)

// Config selects the structured store.
type Config struct {
	Driver string `json:"driver" toml:"driver"`

	// Path is the SQLite database file.
	Path string `json:"path,omitempty" toml:"path"`

	// URL, when set, is used verbatim as the Postgres connection string.
	URL             string          `json:"url,omitempty" toml:"url"`
	Host            string          `json:"host,omitempty" toml:"host"`
	Port            int             `json:"port,omitempty" toml:"port"`
	Database        string          `json:"database,omitempty" toml:"database"`
	Username        string          `json:"username,omitempty" toml:"username"`
	Password        string          `json:"password,omitempty" toml:"password"`
	SSLMode         string          `json:"ssl_mode,omitempty" toml:"ssl_mode"`
	ApplicationName string          `json:"application_name,omitempty" toml:"application_name"`
	MaxConns        int32           `json:"max_conns,omitempty" toml:"max_conns"`
	MinConns        int32           `json:"min_conns,omitempty" toml:"min_conns"`
	MaxConnLifetime models.Duration `json:"max_conn_lifetime,omitempty" toml:"max_conn_lifetime"`
}

func (c *Config) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}

	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return ErrPathRequired
		}
	case DriverPostgres:
		if c.URL == "" && c.Host == "" {
			return ErrHostRequired
		}

		if c.Port == 0 {
			c.Port = defaultPostgresPort
		}

		if c.SSLMode == "" {
			c.SSLMode = defaultSSLMode
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDriver, c.Driver)
	}

	return nil
}

// Open connects to the configured store and applies pending migrations.
func Open(ctx context.Context, cfg *Config, log logger.Logger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverPostgres {
		store, err := OpenPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	store, err := OpenSQLite(ctx, cfg.Path, log)
	if err != nil {
		return nil, err
	}

	return store, nil
}
