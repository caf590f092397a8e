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
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/carverauto/threatmesh/pkg/logger"
	"github.com/carverauto/threatmesh/pkg/models"
)

// sqliteTimeLayout is fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps structured data in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Service = (*SQLiteStore)(nil)

func OpenSQLite(ctx context.Context, path string, log logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// One writer at a time; also keeps :memory: databases on one connection.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{db: conn, logger: log}

	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("SQLite store ready")

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("%w: create tracking table: %w", ErrFailedToInit, err)
	}

	migrations, err := loadMigrations(DriverSQLite)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		var exists int

		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE version = ?`, migrationsTable), m.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%w: check %s: %w", ErrFailedToInit, m.name, err)
		}

		if exists > 0 {
			continue
		}

		if err := s.apply(ctx, m); err != nil {
			return err
		}

		s.logger.Info().Str("migration", m.name).Msg("Applied SQLite migration")
	}

	return nil
}

func (s *SQLiteStore) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: statement %d in %s: %w", ErrFailedToInit, i+1, m.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (version, applied_at) VALUES (?, ?)`, migrationsTable),
		m.version, formatTime(time.Now())); err != nil {
		return fmt.Errorf("%w: record %s: %w", ErrFailedToInit, m.name, err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) ActiveBlockList(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ip_address FROM blocked_ips WHERE active = 1 ORDER BY ip_address`)
	if err != nil {
		return nil, fmt.Errorf("%w: active blocklist: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}

	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("%w: active blocklist: %w", ErrFailedToQuery, err)
		}

		out = append(out, addr)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) ListBlockList(ctx context.Context) ([]models.BlockListEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ip_address, COALESCE(reason, ''), active, added_at FROM blocked_ips ORDER BY ip_address`)
	if err != nil {
		return nil, fmt.Errorf("%w: blocklist: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.BlockListEntry{}

	for rows.Next() {
		var (
			e     models.BlockListEntry
			added string
		)

		if err := rows.Scan(&e.Address, &e.Reason, &e.Active, &added); err != nil {
			return nil, fmt.Errorf("%w: blocklist: %w", ErrFailedToQuery, err)
		}

		e.CreatedAt = parseTime(added)
		out = append(out, e)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) CountBlockList(ctx context.Context) (int, error) {
	var n int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocked_ips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count blocklist: %w", ErrFailedToQuery, err)
	}

	return n, nil
}

func (s *SQLiteStore) UpsertBlockListEntry(ctx context.Context, entry *models.BlockListEntry) error {
	if entry.Address == "" {
		return ErrAddressRequired
	}

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocked_ips (ip_address, reason, active, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ip_address) DO UPDATE SET reason = excluded.reason, active = excluded.active`,
		entry.Address, entry.Reason, entry.Active, formatTime(created))
	if err != nil {
		return fmt.Errorf("%w: blocklist entry %s: %w", ErrFailedToInsert, entry.Address, err)
	}

	return nil
}

func (s *SQLiteStore) DeactivateBlockListEntry(ctx context.Context, address string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE blocked_ips SET active = 0 WHERE ip_address = ? AND active = 1`, address)
	if err != nil {
		return false, fmt.Errorf("%w: deactivate %s: %w", ErrFailedToInsert, address, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *SQLiteStore) StoreBundle(ctx context.Context, bundle *models.TelemetryBundle) error {
	if bundle.BoxCode == "" {
		return ErrBoxCodeRequired
	}

	at := bundleTime(bundle)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrFailedToInsert, err)
	}
	defer func() { _ = tx.Rollback() }()

	box := bundle.BoxData

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO box_reports (box_code, device_name, ip_private, ip_public, mac_address, latency, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bundle.BoxCode, box.DeviceName, box.IPPrivate, box.IPPublic, box.MACAddress, box.Latency, formatTime(at)); err != nil {
		return fmt.Errorf("%w: box report: %w", ErrFailedToInsert, err)
	}

	for _, d := range bundle.Devices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO detected_devices (box_code, device_name, ip_address, mac_address, timestamp)
			VALUES (?, ?, ?, ?, ?)`,
			bundle.BoxCode, d.Name, d.IP, d.MAC, formatTime(at)); err != nil {
			return fmt.Errorf("%w: device %s: %w", ErrFailedToInsert, d.IP, err)
		}
	}

	for i := range bundle.ClientReports {
		r := &bundle.ClientReports[i]

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO client_reports (box_code, client_name, ip_private, mac_address, threats_detected, ips_blocked, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bundle.BoxCode, r.Name, r.IPPriv, r.MAC, r.ThreatsDetected, r.IPsBlocked, formatTime(reportTime(r, at))); err != nil {
			return fmt.Errorf("%w: client report %s: %w", ErrFailedToInsert, r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (s *SQLiteStore) RecentDevices(ctx context.Context, boxCode string, limit int) ([]models.DeviceObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(device_name, ''), COALESCE(ip_address, ''), COALESCE(mac_address, ''), timestamp
		FROM detected_devices
		WHERE box_code = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, boxCode, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: devices: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.DeviceObservation{}

	for rows.Next() {
		var (
			d  models.DeviceObservation
			ts string
		)

		if err := rows.Scan(&d.Name, &d.IP, &d.MAC, &ts); err != nil {
			return nil, fmt.Errorf("%w: devices: %w", ErrFailedToQuery, err)
		}

		d.Timestamp = parseTime(ts)
		out = append(out, d)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) BoxSummary(ctx context.Context, boxCode string, since time.Time) (*models.BoxSummary, error) {
	summary := newSummary(boxCode)

	if err := s.boxInfo(ctx, summary); err != nil {
		return nil, err
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(threats_detected), 0), COALESCE(SUM(ips_blocked), 0)
		FROM client_reports WHERE box_code = ?`, boxCode).
		Scan(&summary.Security.TotalReports, &summary.Security.TotalThreats, &summary.Security.TotalBlocked)
	if err != nil {
		return nil, fmt.Errorf("%w: totals: %w", ErrFailedToQuery, err)
	}

	var last sql.NullString

	err = s.db.QueryRowContext(ctx, `
		SELECT MAX(ts) FROM (
			SELECT MAX(timestamp) AS ts FROM box_reports WHERE box_code = ?
			UNION ALL
			SELECT MAX(timestamp) AS ts FROM client_reports WHERE box_code = ?
			UNION ALL
			SELECT MAX(timestamp) AS ts FROM detected_devices WHERE box_code = ?
		)`, boxCode, boxCode, boxCode).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("%w: last update: %w", ErrFailedToQuery, err)
	}

	if last.Valid {
		t := parseTime(last.String)
		summary.LastUpdate = &t
	}

	if err := s.clientStats(ctx, summary); err != nil {
		return nil, err
	}

	if err := s.history(ctx, summary, since); err != nil {
		return nil, err
	}

	return summary, nil
}

func (s *SQLiteStore) boxInfo(ctx context.Context, summary *models.BoxSummary) error {
	var (
		info     models.BoxReport
		ipPublic sql.NullString
		latency  sql.NullFloat64
		ts       string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(device_name, ''), COALESCE(ip_private, ''), ip_public, COALESCE(mac_address, ''), latency, timestamp
		FROM box_reports
		WHERE box_code = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`, summary.BoxCode).
		Scan(&info.DeviceName, &info.IPPrivate, &ipPublic, &info.MACAddress, &latency, &ts)
	if err == sql.ErrNoRows {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: box info: %w", ErrFailedToQuery, err)
	}

	info.BoxCode = summary.BoxCode
	info.Timestamp = parseTime(ts)

	if ipPublic.Valid {
		info.IPPublic = &ipPublic.String
	}

	if latency.Valid {
		info.Latency = &latency.Float64
	}

	summary.BoxInfo = &info

	return nil
}

func (s *SQLiteStore) clientStats(ctx context.Context, summary *models.BoxSummary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(client_name, ''), COALESCE(ip_private, ''), COALESCE(mac_address, ''),
		       SUM(threats_detected), SUM(ips_blocked), MAX(timestamp)
		FROM client_reports
		WHERE box_code = ?
		GROUP BY client_name, ip_private, mac_address
		ORDER BY MAX(timestamp) DESC`, summary.BoxCode)
	if err != nil {
		return fmt.Errorf("%w: client stats: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			c    models.ClientStats
			last string
		)

		if err := rows.Scan(&c.Name, &c.IPPrivate, &c.MAC, &c.ThreatsDetected, &c.IPsBlocked, &last); err != nil {
			return fmt.Errorf("%w: client stats: %w", ErrFailedToQuery, err)
		}

		c.LastReport = parseTime(last)
		summary.Clients = append(summary.Clients, c)
	}

	return rows.Err()
}

func (s *SQLiteStore) history(ctx context.Context, summary *models.BoxSummary, since time.Time) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day, SUM(threats_detected), SUM(ips_blocked)
		FROM client_reports
		WHERE box_code = ? AND timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, summary.BoxCode, formatTime(since))
	if err != nil {
		return fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d models.DailyThreats

		if err := rows.Scan(&d.Date, &d.ThreatsDetected, &d.IPsBlocked); err != nil {
			return fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
		}

		summary.History = append(summary.History, d)
	}

	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
