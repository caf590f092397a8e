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

package db

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const migrationsTable = "schema_migrations"

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

type migration struct {
	version    string
	name       string
	statements []string
}

// loadMigrations returns the embedded .up.sql files for a driver in
// version order.
func loadMigrations(driver string) ([]migration, error) {
	dir := path.Join("migrations", driver)

	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read embedded migrations: %w", ErrFailedToInit, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	out := make([]migration, 0, len(names))

	for _, name := range names {
		content, err := migrationsFS.ReadFile(path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrFailedToInit, name, err)
		}

		out = append(out, migration{
			version:    extractVersion(name),
			name:       name,
			statements: splitSQLStatements(string(content)),
		})
	}

	return out, nil
}
