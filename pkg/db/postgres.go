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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

// PostgresStore is the pgx-backed structured store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Service = (*PostgresStore)(nil)

func OpenPostgres(ctx context.Context, cfg *Config, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	pool, err := newPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool, logger: log}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", ErrFailedToInit, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("%w: create tracking table: %w", ErrFailedToInit, err)
	}

	applied := make(map[string]struct{})

	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, migrationsTable))
	if err != nil {
		return fmt.Errorf("%w: list applied versions: %w", ErrFailedToInit, err)
	}

	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("%w: scan applied versions: %w", ErrFailedToInit, err)
	}

	for _, v := range versions {
		applied[v] = struct{}{}
	}

	migrations, err := loadMigrations(DriverPostgres)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}

		s.logger.Info().Str("migration", m.name).Msg("Applying Postgres migration")

		for idx, stmt := range m.statements {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%w: statement %d in %s: %w", ErrFailedToInit, idx+1, m.name, err)
			}
		}

		if _, err := conn.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, migrationsTable), m.version); err != nil {
			return fmt.Errorf("%w: record %s: %w", ErrFailedToInit, m.name, err)
		}
	}

	return nil
}

func (s *PostgresStore) ActiveBlockList(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT ip_address FROM blocked_ips WHERE active ORDER BY ip_address`)
	if err != nil {
		return nil, fmt.Errorf("%w: active blocklist: %w", ErrFailedToQuery, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: active blocklist: %w", ErrFailedToQuery, err)
	}

	if out == nil {
		out = []string{}
	}

	return out, nil
}

func (s *PostgresStore) ListBlockList(ctx context.Context) ([]models.BlockListEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ip_address, COALESCE(reason, ''), active, added_at FROM blocked_ips ORDER BY ip_address`)
	if err != nil {
		return nil, fmt.Errorf("%w: blocklist: %w", ErrFailedToQuery, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BlockListEntry, error) {
		var e models.BlockListEntry
		err := row.Scan(&e.Address, &e.Reason, &e.Active, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()

		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: blocklist: %w", ErrFailedToQuery, err)
	}

	if out == nil {
		out = []models.BlockListEntry{}
	}

	return out, nil
}

func (s *PostgresStore) CountBlockList(ctx context.Context) (int, error) {
	var n int

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM blocked_ips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count blocklist: %w", ErrFailedToQuery, err)
	}

	return n, nil
}

func (s *PostgresStore) UpsertBlockListEntry(ctx context.Context, entry *models.BlockListEntry) error {
	if entry.Address == "" {
		return ErrAddressRequired
	}

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocked_ips (ip_address, reason, active, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ip_address) DO UPDATE SET reason = EXCLUDED.reason, active = EXCLUDED.active`,
		entry.Address, entry.Reason, entry.Active, created)
	if err != nil {
		return fmt.Errorf("%w: blocklist entry %s: %w", ErrFailedToInsert, entry.Address, err)
	}

	return nil
}

func (s *PostgresStore) DeactivateBlockListEntry(ctx context.Context, address string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE blocked_ips SET active = FALSE WHERE ip_address = $1 AND active`, address)
	if err != nil {
		return false, fmt.Errorf("%w: deactivate %s: %w", ErrFailedToInsert, address, err)
	}

	return tag.RowsAffected() > 0, nil
}

// StoreBundle writes the box row, its devices and its client reports as one
// batch inside a single transaction.
func (s *PostgresStore) StoreBundle(ctx context.Context, bundle *models.TelemetryBundle) error {
	if bundle.BoxCode == "" {
		return ErrBoxCodeRequired
	}

	at := bundleTime(bundle)
	box := bundle.BoxData

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO box_reports (box_code, device_name, ip_private, ip_public, mac_address, latency, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		bundle.BoxCode, box.DeviceName, box.IPPrivate, box.IPPublic, box.MACAddress, box.Latency, at)

	for _, d := range bundle.Devices {
		batch.Queue(`
			INSERT INTO detected_devices (box_code, device_name, ip_address, mac_address, timestamp)
			VALUES ($1, $2, $3, $4, $5)`,
			bundle.BoxCode, d.Name, d.IP, d.MAC, at)
	}

	for i := range bundle.ClientReports {
		r := &bundle.ClientReports[i]
		batch.Queue(`
			INSERT INTO client_reports (box_code, client_name, ip_private, mac_address, threats_detected, ips_blocked, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			bundle.BoxCode, r.Name, r.IPPriv, r.MAC, r.ThreatsDetected, r.IPsBlocked, reportTime(r, at))
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return sendBatchExecAll(ctx, batch, tx.SendBatch, "store bundle")
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (s *PostgresStore) RecentDevices(ctx context.Context, boxCode string, limit int) ([]models.DeviceObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(device_name, ''), COALESCE(ip_address, ''), COALESCE(mac_address, ''), timestamp
		FROM detected_devices
		WHERE box_code = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`, boxCode, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: devices: %w", ErrFailedToQuery, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DeviceObservation, error) {
		var d models.DeviceObservation
		err := row.Scan(&d.Name, &d.IP, &d.MAC, &d.Timestamp)
		d.Timestamp = d.Timestamp.UTC()

		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: devices: %w", ErrFailedToQuery, err)
	}

	if out == nil {
		out = []models.DeviceObservation{}
	}

	return out, nil
}

func (s *PostgresStore) BoxSummary(ctx context.Context, boxCode string, since time.Time) (*models.BoxSummary, error) {
	summary := newSummary(boxCode)

	var (
		info models.BoxReport
		ts   time.Time
	)

	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(device_name, ''), COALESCE(ip_private, ''), ip_public, COALESCE(mac_address, ''), latency, timestamp
		FROM box_reports
		WHERE box_code = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`, boxCode).
		Scan(&info.DeviceName, &info.IPPrivate, &info.IPPublic, &info.MACAddress, &info.Latency, &ts)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("%w: box info: %w", ErrFailedToQuery, err)
	default:
		info.BoxCode = boxCode
		info.Timestamp = ts.UTC()
		summary.BoxInfo = &info
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(threats_detected), 0)::BIGINT, COALESCE(SUM(ips_blocked), 0)::BIGINT
		FROM client_reports WHERE box_code = $1`, boxCode).
		Scan(&summary.Security.TotalReports, &summary.Security.TotalThreats, &summary.Security.TotalBlocked)
	if err != nil {
		return nil, fmt.Errorf("%w: totals: %w", ErrFailedToQuery, err)
	}

	var last *time.Time

	err = s.pool.QueryRow(ctx, `
		SELECT GREATEST(
			(SELECT MAX(timestamp) FROM box_reports WHERE box_code = $1),
			(SELECT MAX(timestamp) FROM client_reports WHERE box_code = $1),
			(SELECT MAX(timestamp) FROM detected_devices WHERE box_code = $1)
		)`, boxCode).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("%w: last update: %w", ErrFailedToQuery, err)
	}

	if last != nil {
		t := last.UTC()
		summary.LastUpdate = &t
	}

	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(client_name, ''), COALESCE(ip_private, ''), COALESCE(mac_address, ''),
		       SUM(threats_detected)::BIGINT, SUM(ips_blocked)::BIGINT, MAX(timestamp)
		FROM client_reports
		WHERE box_code = $1
		GROUP BY client_name, ip_private, mac_address
		ORDER BY MAX(timestamp) DESC`, boxCode)
	if err != nil {
		return nil, fmt.Errorf("%w: client stats: %w", ErrFailedToQuery, err)
	}

	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ClientStats, error) {
		var c models.ClientStats
		err := row.Scan(&c.Name, &c.IPPrivate, &c.MAC, &c.ThreatsDetected, &c.IPsBlocked, &c.LastReport)
		c.LastReport = c.LastReport.UTC()

		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: client stats: %w", ErrFailedToQuery, err)
	}

	summary.Clients = append(summary.Clients, clients...)

	rows, err = s.pool.Query(ctx, `
		SELECT to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       SUM(threats_detected)::BIGINT, SUM(ips_blocked)::BIGINT
		FROM client_reports
		WHERE box_code = $1 AND timestamp >= $2
		GROUP BY day
		ORDER BY day DESC`, boxCode, since)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
	}

	history, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.DailyThreats])
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
	}

	summary.History = append(summary.History, history...)

	return summary, nil
}
