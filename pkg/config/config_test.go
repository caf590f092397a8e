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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatmesh/pkg/models"
)

type testStore struct {
	Path string `json:"path" toml:"path"`
}

type testConfig struct {
	ListenAddr string          `json:"listen_addr" toml:"listen_addr"`
	Interval   models.Duration `json:"interval" toml:"interval"`
	Seed       bool            `json:"seed" toml:"seed"`
	Peers      []string        `json:"peers" toml:"peers"`
	Store      testStore       `json:"store" toml:"store"`
	Workers    int             `json:"workers" toml:"workers"`
}

var errNoListen = errors.New("listen_addr required")

func (c *testConfig) Validate() error {
	if c.ListenAddr == "" {
		return errNoListen
	}

	if c.Workers == 0 {
		c.Workers = 32
	}

	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadJSONFile(t *testing.T) {
	path := writeFile(t, "edge.json", `{"listen_addr":":5001","interval":"10m","store":{"path":"/var/lib/x"}}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":5001", cfg.ListenAddr)
	assert.Equal(t, 10*time.Minute, cfg.Interval.Std())
	assert.Equal(t, "/var/lib/x", cfg.Store.Path)
	assert.Equal(t, 32, cfg.Workers)
}

func TestLoadTOMLFile(t *testing.T) {
	path := writeFile(t, "edge.toml", `
listen_addr = ":6001"
interval = "1h"
seed = true
peers = ["a", "b"]

[store]
path = "/tmp/s"
`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":6001", cfg.ListenAddr)
	assert.Equal(t, time.Hour, cfg.Interval.Std())
	assert.True(t, cfg.Seed)
	assert.Equal(t, []string{"a", "b"}, cfg.Peers)
	assert.Equal(t, "/tmp/s", cfg.Store.Path)
}

func TestValidationFailure(t *testing.T) {
	path := writeFile(t, "bad.json", `{"interval":"1s"}`)

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errNoListen)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("THREATMESH_LISTEN_ADDR", ":7001")
	t.Setenv("THREATMESH_INTERVAL", "30s")
	t.Setenv("THREATMESH_SEED", "true")
	t.Setenv("THREATMESH_PEERS", "x, y")
	t.Setenv("THREATMESH_STORE_PATH", "/data")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":7001", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.Interval.Std())
	assert.True(t, cfg.Seed)
	assert.Equal(t, []string{"x", "y"}, cfg.Peers)
	assert.Equal(t, "/data", cfg.Store.Path)
}

func TestLoadFromEnvJSONDocument(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "EDGE_")
	t.Setenv("EDGE_CONFIG_JSON", `{"listen_addr":":8001","workers":4}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":8001", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Workers)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "etcd")

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestMissingFile(t *testing.T) {
	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "nope.json"), &cfg)
	require.ErrorIs(t, err, os.ErrNotExist)
}
