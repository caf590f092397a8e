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

package scan

import "errors"

var (
	errConnectionRefused = errors.New("connection refused")

	ErrARPUnsupported    = errors.New("raw ARP probing is not supported on this platform")
	ErrInterfaceRequired = errors.New("interface name is required for ARP probing")
	ErrInterfaceNoMAC    = errors.New("interface has no hardware address")
	ErrScanFailed        = errors.New("both active and passive scans failed")
)
