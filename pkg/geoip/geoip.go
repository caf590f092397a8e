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

// Package geoip tags addresses with a country using a MaxMind database.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/oschwald/maxminddb-golang"
)

var ErrClosed = errors.New("geoip database is closed")

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Lookup resolves an address to an ISO country code. An empty code means
// the address is not in the database.
type Lookup interface {
	Country(addr netip.Addr) (string, error)
}

// DB wraps a GeoLite2/GeoIP2 Country or City database.
type DB struct {
	mu     sync.RWMutex
	reader *maxminddb.Reader
}

func Open(path string) (*DB, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}

	return &DB{reader: reader}, nil
}

func (d *DB) Country(addr netip.Addr) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.reader == nil {
		return "", ErrClosed
	}

	var rec countryRecord
	if err := d.reader.Lookup(net.IP(addr.Unmap().AsSlice()), &rec); err != nil {
		return "", fmt.Errorf("geoip lookup %s: %w", addr, err)
	}

	return rec.Country.ISOCode, nil
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reader == nil {
		return nil
	}

	err := d.reader.Close()
	d.reader = nil

	return err
}

// Nop answers every lookup with an empty code.
type Nop struct{}

func (Nop) Country(netip.Addr) (string, error) {
	return "", nil
}
