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

import "errors"

var (
	errAggregatorURLRequired = errors.New("aggregator_url is required")
	errKVRequired            = errors.New("kv store is required")
	errNoPublicIP            = errors.New("public IP lookup returned no address")
	errLatencyUnavailable    = errors.New("gateway latency could not be measured")
	errNoGateway             = errors.New("no gateway address")
)
