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

package kv

import (
	"context"
	"fmt"

	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	BackendFile  = "file"
	BackendNATS  = "nats"
	BackendRedis = "redis"

	defaultBucket = "threatmesh"
)

// Config selects and configures the snapshot store backend.
type Config struct {
	Backend       string          `json:"backend" toml:"backend"`
	Path          string          `json:"path" toml:"path"`
	NATSURL       string          `json:"nats_url,omitempty" toml:"nats_url"`
	Bucket        string          `json:"bucket,omitempty" toml:"bucket"`
	BucketTTL     models.Duration `json:"bucket_ttl,omitempty" toml:"bucket_ttl"`
	RedisAddr     string          `json:"redis_addr,omitempty" toml:"redis_addr"`
	RedisPassword string          `json:"redis_password,omitempty" toml:"redis_password"`
	RedisDB       int             `json:"redis_db,omitempty" toml:"redis_db"`
	KeyPrefix     string          `json:"key_prefix,omitempty" toml:"key_prefix"`
}

// Validate applies defaults and checks backend-specific requirements.
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}

	switch c.Backend {
	case BackendFile:
		if c.Path == "" {
			return errPathRequired
		}
	case BackendNATS:
		if c.NATSURL == "" {
			return errNatsURLRequired
		}

		if c.Bucket == "" {
			c.Bucket = defaultBucket
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownBackend, c.Backend)
	}

	return nil
}

// New opens the store described by cfg.
func New(ctx context.Context, cfg *Config) (KVStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store KVStore
		err   error
	)

	switch cfg.Backend {
	case BackendNATS:
		store, err = NewNatsStore(ctx, cfg.NATSURL, cfg.Bucket, cfg.BucketTTL.Std())
	case BackendRedis:
		store, err = NewRedisStore(ctx, &RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		store, err = NewFileStore(cfg.Path)
	}

	if err != nil {
		return nil, err
	}

	return store, nil
}
