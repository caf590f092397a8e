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
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/threatmesh/pkg/api"
	httpx "github.com/carverauto/threatmesh/pkg/http"
	"github.com/carverauto/threatmesh/pkg/metrics"
	"github.com/carverauto/threatmesh/pkg/models"
)

const pathDevices = "/api/devices"

// Router serves the Edge Agent API to Monitor Agents.
func (a *Agent) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return httpx.CommonMiddleware(next, a.logger)
	})

	r.HandleFunc(api.PathDiscover, a.handleDiscover).Methods(http.MethodGet)
	r.HandleFunc(api.PathBlockList, a.handleBlockList).Methods(http.MethodGet)
	r.HandleFunc(api.PathReport, a.handleReport).Methods(http.MethodPost)
	r.HandleFunc(pathDevices, a.handleDevices).Methods(http.MethodGet)
	r.HandleFunc(api.PathHealth, api.HealthHandler).Methods(http.MethodGet)
	r.Handle(api.PathMetrics, metrics.Handler(a.deps.Registry)).Methods(http.MethodGet)

	return r
}

func (a *Agent) handleDiscover(w http.ResponseWriter, _ *http.Request) {
	id, name := a.Identity()

	api.WriteJSON(w, http.StatusOK, models.DiscoverResponse{
		Status:    models.StatusSuccess,
		Timestamp: time.Now().UTC(),
		BoxName:   name,
		BoxCode:   id,
	})
}

func (a *Agent) handleBlockList(w http.ResponseWriter, _ *http.Request) {
	api.WriteBlockList(w, a.BlockList())
}

func (a *Agent) handleReport(w http.ResponseWriter, r *http.Request) {
	var report models.ClientReport

	if err := api.DecodeJSON(w, r, &report); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := a.SubmitClientReport(r.Context(), &report)

	switch {
	case err == nil:
		api.WriteMessage(w, http.StatusOK, "report queued")
	case errors.Is(err, models.ErrReportNameRequired),
		errors.Is(err, models.ErrReportIPRequired),
		errors.Is(err, models.ErrNegativeCounter):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error().Err(err).Str("client", report.Name).Msg("Failed to queue client report")
		api.WriteError(w, http.StatusInternalServerError, "failed to queue report")
	}
}

func (a *Agent) handleDevices(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, a.Devices())
}
