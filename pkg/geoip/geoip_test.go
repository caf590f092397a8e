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

package geoip

import (
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"))
	require.Error(t, err)
}

func TestClosedDatabase(t *testing.T) {
	db := &DB{}

	_, err := db.Country(netip.MustParseAddr("8.8.8.8"))
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, db.Close())
}

func TestNop(t *testing.T) {
	var l Lookup = Nop{}

	code, err := l.Country(netip.MustParseAddr("8.8.8.8"))
	require.NoError(t, err)
	assert.Empty(t, code)
}
