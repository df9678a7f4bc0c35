// Copyright (C) 2025 Goodspeed Apps
//
// This file is part of statusclaw-a2a.
//
// statusclaw-a2a is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// statusclaw-a2a is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with statusclaw-a2a.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/audit"
)

// AppendAuditEntry appends e to its date partition and refreshes the
// partition checksum in the same transaction, so a crash between the two
// writes cannot leave them out of step.
func (d *DB) AppendAuditEntry(ctx context.Context, e *audit.Entry) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append audit entry: begin: %w", err)
	}
	defer tx.Rollback()

	date := e.PartitionDate()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_entries (partition_date, ts, from_agent, to_agent, status, reason, correlation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		date, formatTime(e.Timestamp), e.FromAgent, e.ToAgent,
		string(e.Status), e.Reason, e.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	entries, err := partitionEntriesTx(ctx, tx, date)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	checksum, err := audit.ChecksumEntries(entries)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_checksums (partition_date, checksum) VALUES (?, ?)
		 ON CONFLICT(partition_date) DO UPDATE SET checksum = excluded.checksum`,
		date, checksum,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: update checksum: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append audit entry: commit: %w", err)
	}
	return nil
}

// QueryAuditEntries returns matching entries ordered by timestamp
// ascending, row id as tie-breaker.
func (d *DB) QueryAuditEntries(ctx context.Context, f audit.StoreFilter) ([]audit.StoredEntry, error) {
	query := `SELECT id, ts, from_agent, to_agent, status, reason, correlation_id
		 FROM audit_entries WHERE ts >= ? AND ts <= ?`
	args := []any{formatTime(f.StartTime), formatTime(f.EndTime)}

	if f.FromAgent != "" {
		query += ` AND from_agent = ?`
		args = append(args, f.FromAgent)
	}
	if f.ToAgent != "" {
		query += ` AND to_agent = ?`
		args = append(args, f.ToAgent)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.AfterRowID > 0 {
		query += ` AND id > ?`
		args = append(args, f.AfterRowID)
	}
	query += ` ORDER BY ts, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.StoredEntry
	for rows.Next() {
		var se audit.StoredEntry
		if err := scanAuditEntry(rows, &se.RowID, &se.Entry); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

// AuditPartitionEntries returns all entries of one date partition in
// insertion order.
func (d *DB) AuditPartitionEntries(ctx context.Context, date string) ([]audit.Entry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, ts, from_agent, to_agent, status, reason, correlation_id
		 FROM audit_entries WHERE partition_date = ? ORDER BY id`, date,
	)
	if err != nil {
		return nil, fmt.Errorf("audit partition entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var rowID int64
		var e audit.Entry
		if err := scanAuditEntry(rows, &rowID, &e); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StoredAuditChecksum returns the stored digest for a date partition.
func (d *DB) StoredAuditChecksum(ctx context.Context, date string) (string, bool, error) {
	var checksum string
	err := d.db.QueryRowContext(ctx,
		`SELECT checksum FROM audit_checksums WHERE partition_date = ?`, date,
	).Scan(&checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stored audit checksum: %w", err)
	}
	return checksum, true, nil
}

func partitionEntriesTx(ctx context.Context, tx *sql.Tx, date string) ([]audit.Entry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, ts, from_agent, to_agent, status, reason, correlation_id
		 FROM audit_entries WHERE partition_date = ? ORDER BY id`, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var rowID int64
		var e audit.Entry
		if err := scanAuditEntry(rows, &rowID, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanAuditEntry(s scanner, rowID *int64, e *audit.Entry) error {
	var ts, status string
	if err := s.Scan(rowID, &ts, &e.FromAgent, &e.ToAgent, &status, &e.Reason, &e.CorrelationID); err != nil {
		return err
	}
	e.Status = audit.Status(status)
	var err error
	e.Timestamp, err = parseTime(ts)
	if err != nil {
		return fmt.Errorf("parse audit ts: %w", err)
	}
	return nil
}
