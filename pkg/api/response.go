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

// Package api holds the HTTP/JSON wire surface shared by the three roles:
// response writers for servers and a typed client for peers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carverauto/threatmesh/pkg/models"
	"github.com/carverauto/threatmesh/pkg/version"
)

const (
	PathDiscover  = "/api/discover"
	PathBlockList = "/api/blocklist"
	PathReport    = "/api/report"
	PathHealth    = "/healthz"
	PathMetrics   = "/metrics"

	// MaxBodyBytes caps request bodies accepted by role servers.
	MaxBodyBytes = 8 << 20
)

var ErrEmptyBody = errors.New("request body is empty")

// WriteJSON encodes data with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// WriteMessage writes the {status, timestamp, message} acknowledgement.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	outcome := models.StatusSuccess
	if status >= http.StatusBadRequest {
		outcome = models.StatusError
	}

	WriteJSON(w, status, models.MessageResponse{
		Status:    outcome,
		Timestamp: time.Now().UTC(),
		Message:   message,
	})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteMessage(w, status, message)
}

// WriteBlockList writes the blocklist wire format. A nil list is sent as [].
func WriteBlockList(w http.ResponseWriter, addrs []string) {
	if addrs == nil {
		addrs = []string{}
	}

	WriteJSON(w, http.StatusOK, models.BlockListResponse{
		Status:    models.StatusSuccess,
		Timestamp: time.Now().UTC(),
		Data:      addrs,
	})
}

// DecodeJSON reads a bounded request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}

		return fmt.Errorf("invalid JSON body: %w", err)
	}

	return nil
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.GetVersion()})
}
