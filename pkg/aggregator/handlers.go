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
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/threatmesh/pkg/api"
	httpx "github.com/carverauto/threatmesh/pkg/http"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/models"
)

const (
	pathBoxDevices = "/api/boxes/{identity}/devices"
	pathBoxSummary = "/api/boxes/{identity}/summary"
	pathBoxBundles = "/api/boxes/{identity}/bundles"
	pathAdmin      = "/api/admin"
	pathAdminEntry = "/blocklist/{address}"
	pathAdminList  = "/blocklist"
)

type addEntryRequest struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Router serves the ingest, read and admin APIs. Admin routes require
// adminKey in X-API-Key.
func (a *Aggregator) Router(adminKey string) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return httpx.CommonMiddleware(next, a.logger)
	})

	r.HandleFunc(api.PathBlockList, a.handleBlockList).Methods(http.MethodGet)
	r.HandleFunc(api.PathReport, a.handleReport).Methods(http.MethodPost)
	r.HandleFunc(pathBoxDevices, a.handleDevices).Methods(http.MethodGet)
	r.HandleFunc(pathBoxSummary, a.handleSummary).Methods(http.MethodGet)
	r.HandleFunc(pathBoxBundles, a.handleBundles).Methods(http.MethodGet)
	r.HandleFunc(api.PathHealth, api.HealthHandler).Methods(http.MethodGet)
	r.Handle(api.PathMetrics, metrics.Handler(a.registry)).Methods(http.MethodGet)

	admin := r.PathPrefix(pathAdmin).Subrouter()
	admin.Use(httpx.APIKeyMiddleware(httpx.APIKeyOptions{APIKey: adminKey, Logger: a.logger}))
	admin.HandleFunc(pathAdminList, a.handleAdminList).Methods(http.MethodGet)
	admin.HandleFunc(pathAdminList, a.handleAdminAdd).Methods(http.MethodPost)
	admin.HandleFunc(pathAdminEntry, a.handleAdminRemove).Methods(http.MethodDelete)

	return r
}

func (a *Aggregator) handleBlockList(w http.ResponseWriter, r *http.Request) {
	addrs, err := a.GetBlockList(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to read blocklist")
		api.WriteError(w, http.StatusInternalServerError, "failed to read blocklist")

		return
	}

	a.metrics.BlockListServes.Inc()
	api.WriteBlockList(w, addrs)
}

func (a *Aggregator) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, api.MaxBodyBytes))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if len(body) == 0 {
		api.WriteError(w, http.StatusBadRequest, api.ErrEmptyBody.Error())
		return
	}

	bundle, err := DecodeBundle(body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.SubmitTelemetry(r.Context(), body, bundle)

	switch {
	case errors.Is(err, models.ErrIdentityRequired):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		a.logger.Error().Err(err).Str("box_code", bundle.BoxCode).Msg("Failed to archive telemetry bundle")
		api.WriteError(w, http.StatusInternalServerError, "failed to store telemetry")
	default:
		api.WriteMessage(w, http.StatusOK, result.Message())
	}
}

func (a *Aggregator) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := a.Devices(r.Context(), mux.Vars(r)["identity"])
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to read devices")
		api.WriteError(w, http.StatusInternalServerError, "failed to read devices")

		return
	}

	api.WriteJSON(w, http.StatusOK, devices)
}

func (a *Aggregator) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Summary(r.Context(), mux.Vars(r)["identity"])
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to build box summary")
		api.WriteError(w, http.StatusInternalServerError, "failed to build summary")

		return
	}

	api.WriteJSON(w, http.StatusOK, summary)
}

func (a *Aggregator) handleBundles(w http.ResponseWriter, r *http.Request) {
	keys, err := a.Bundles(r.Context(), mux.Vars(r)["identity"])
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to list archived bundles")
		api.WriteError(w, http.StatusInternalServerError, "failed to list bundles")

		return
	}

	api.WriteJSON(w, http.StatusOK, keys)
}

func (a *Aggregator) handleAdminList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.db.ListBlockList(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to list blocklist entries")
		api.WriteError(w, http.StatusInternalServerError, "failed to list blocklist")

		return
	}

	api.WriteJSON(w, http.StatusOK, entries)
}

func (a *Aggregator) handleAdminAdd(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest

	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := a.AddBlockListEntry(r.Context(), req.Address, req.Reason)

	switch {
	case errors.Is(err, errInvalidAddress):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		a.logger.Error().Err(err).Str("address", req.Address).Msg("Failed to add blocklist entry")
		api.WriteError(w, http.StatusInternalServerError, "failed to add entry")
	default:
		api.WriteJSON(w, http.StatusCreated, entry)
	}
}

func (a *Aggregator) handleAdminRemove(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	err := a.RemoveBlockListEntry(r.Context(), address)

	switch {
	case errors.Is(err, errInvalidAddress):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errEntryNotFound):
		api.WriteError(w, http.StatusNotFound, err.Error())
	case err != nil:
		a.logger.Error().Err(err).Str("address", address).Msg("Failed to deactivate blocklist entry")
		api.WriteError(w, http.StatusInternalServerError, "failed to remove entry")
	default:
		api.WriteMessage(w, http.StatusOK, "entry deactivated")
	}
}
