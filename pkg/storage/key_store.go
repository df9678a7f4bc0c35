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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/keys"
)

// Timestamps are stored as fixed-width UTC strings with nine fractional
// digits. RFC3339Nano is unsuitable here: it strips trailing zeros, so its
// strings do not sort chronologically and the audit range filter would
// miscompare boundary seconds.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertAgentKey creates or replaces the registry record for an agent.
func (d *DB) UpsertAgentKey(entry *keys.AgentKeyEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("upsert agent key: marshal metadata: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO agent_keys (agent_id, public_key, status, metadata, registered_at, rotated_at, revoked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
			public_key    = excluded.public_key,
			status        = excluded.status,
			metadata      = excluded.metadata,
			registered_at = excluded.registered_at,
			rotated_at    = excluded.rotated_at,
			revoked_at    = excluded.revoked_at`,
		entry.AgentID, entry.PublicKey, string(entry.Status), string(metadata),
		formatTime(entry.RegisteredAt), formatTimePtr(entry.RotatedAt), formatTimePtr(entry.RevokedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert agent key: %w", err)
	}
	return nil
}

// GetAgentKey retrieves the registry record for agentID, or (nil, nil) if
// no record exists.
func (d *DB) GetAgentKey(agentID string) (*keys.AgentKeyEntry, error) {
	row := d.db.QueryRow(
		`SELECT agent_id, public_key, status, metadata, registered_at, rotated_at, revoked_at
		 FROM agent_keys WHERE agent_id = ?`, agentID,
	)
	entry, err := scanAgentKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent key: %w", err)
	}
	return entry, nil
}

// ListAgentKeys returns all registry records with the given status.
func (d *DB) ListAgentKeys(status keys.KeyStatus) ([]keys.AgentKeyEntry, error) {
	rows, err := d.db.Query(
		`SELECT agent_id, public_key, status, metadata, registered_at, rotated_at, revoked_at
		 FROM agent_keys WHERE status = ? ORDER BY agent_id`, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list agent keys: %w", err)
	}
	defer rows.Close()

	var entries []keys.AgentKeyEntry
	for rows.Next() {
		entry, err := scanAgentKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent key: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// RecordKeyLineage appends a superseded public key to the agent's rotation
// history.
func (d *DB) RecordKeyLineage(agentID, publicKey string, replacedAt time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO agent_key_lineage (agent_id, public_key, replaced_at) VALUES (?, ?, ?)`,
		agentID, publicKey, formatTime(replacedAt),
	)
	if err != nil {
		return fmt.Errorf("record key lineage: %w", err)
	}
	return nil
}

// AgentKeyHistory returns the rotation history for agentID, oldest first.
func (d *DB) AgentKeyHistory(agentID string) ([]keys.LineageEntry, error) {
	rows, err := d.db.Query(
		`SELECT agent_id, public_key, replaced_at FROM agent_key_lineage
		 WHERE agent_id = ? ORDER BY id`, agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("agent key history: %w", err)
	}
	defer rows.Close()

	var history []keys.LineageEntry
	for rows.Next() {
		var le keys.LineageEntry
		var replacedAt string
		if err := rows.Scan(&le.AgentID, &le.PublicKey, &replacedAt); err != nil {
			return nil, fmt.Errorf("scan key lineage: %w", err)
		}
		le.ReplacedAt, err = parseTime(replacedAt)
		if err != nil {
			return nil, fmt.Errorf("parse lineage time: %w", err)
		}
		history = append(history, le)
	}
	return history, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAgentKey(s scanner) (*keys.AgentKeyEntry, error) {
	entry := &keys.AgentKeyEntry{}
	var status, metadata, registeredAt string
	var rotatedAt, revokedAt sql.NullString

	if err := s.Scan(&entry.AgentID, &entry.PublicKey, &status, &metadata,
		&registeredAt, &rotatedAt, &revokedAt); err != nil {
		return nil, err
	}

	entry.Status = keys.KeyStatus(status)
	if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	var err error
	if entry.RegisteredAt, err = parseTime(registeredAt); err != nil {
		return nil, fmt.Errorf("parse registered_at: %w", err)
	}
	if entry.RotatedAt, err = parseTimePtr(rotatedAt); err != nil {
		return nil, fmt.Errorf("parse rotated_at: %w", err)
	}
	if entry.RevokedAt, err = parseTimePtr(revokedAt); err != nil {
		return nil, fmt.Errorf("parse revoked_at: %w", err)
	}
	return entry, nil
}
