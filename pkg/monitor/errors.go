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

package monitor

import "errors"

var (
	errKVRequired         = errors.New("kv store is required")
	errDiscoveryBackoff   = errors.New("edge discovery is backing off")
	errBlockListEmpty     = errors.New("blocklist is empty")
	errNoOwner            = errors.New("connection has no owning process")
	errCaptureDisabled    = errors.New("packet capture is not supported on this platform")
	errNoCaptureInterface = errors.New("no interface to capture on")
)
