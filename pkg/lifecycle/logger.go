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

package lifecycle

import (
	"fmt"
	"io"

	"github.com/carverauto/threatmesh/pkg/logger"
)

// CreateComponentLogger builds the logger a role service runs with. Every
// line carries component=<component>.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	return newComponentLogger(component, config, nil)
}

func newComponentLogger(component string, config *logger.Config, w io.Writer) (logger.Logger, error) {
	base, err := logger.New(config, w)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.Wrap(base.WithComponent(component)), nil
}
