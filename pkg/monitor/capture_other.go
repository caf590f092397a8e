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

//go:build !linux

package monitor

import (
	"context"
	"net/netip"

	"github.com/carverauto/threatmesh/pkg/discovery"
)

type RawCapture struct{}

func NewRawCapture(string, discovery.ProfileSource) *RawCapture {
	return &RawCapture{}
}

func (*RawCapture) Run(context.Context, func(src, dst netip.Addr)) error {
	return errCaptureDisabled
}
