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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/threatmesh/pkg/aggregator"
	"github.com/carverauto/threatmesh/pkg/config"
	"github.com/carverauto/threatmesh/pkg/lifecycle"
	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/threatmesh/aggregator.json", "Path to aggregator config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx := context.Background()

	var cfg aggregator.Config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	aggregatorLogger, err := lifecycle.CreateComponentLogger("aggregator", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	aggregatorLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting")

	svc, err := aggregator.NewService(ctx, &cfg, aggregatorLogger)
	if err != nil {
		return fmt.Errorf("failed to create aggregator service: %w", err)
	}

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName: "Aggregator",
		Service:     svc,
		Logger:      aggregatorLogger,
	})
}
