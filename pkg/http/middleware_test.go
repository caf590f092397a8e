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

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/threatmesh/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
}

func TestCommonMiddleware(t *testing.T) {
	handler := CommonMiddleware(okHandler(), logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/discover", http.NoBody)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "OK", rr.Body.String())
}

func TestCommonMiddlewarePreflight(t *testing.T) {
	called := false
	handler := CommonMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}), logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/api/report", http.NoBody)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, called)
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := APIKeyMiddleware(APIKeyOptions{
		APIKey:       "test-key",
		ExcludePaths: []string{"/healthz"},
	})(okHandler())

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{name: "missing key", path: "/api/admin/blocklist", status: http.StatusUnauthorized},
		{name: "wrong key", path: "/api/admin/blocklist", key: "nope", status: http.StatusUnauthorized},
		{name: "valid key", path: "/api/admin/blocklist", key: "test-key", status: http.StatusOK},
		{name: "excluded path", path: "/healthz", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, http.NoBody)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestAPIKeyMiddlewareEmptyKeyRejects(t *testing.T) {
	handler := APIKeyMiddleware(APIKeyOptions{})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/blocklist", http.NoBody)
	req.Header.Set("X-API-Key", "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
