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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/keys"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAgentKeyRoundTrip(t *testing.T) {
	db := newTestDB(t)

	registered := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	rotated := registered.Add(time.Hour)
	entry := &keys.AgentKeyEntry{
		AgentID:      "atlas",
		PublicKey:    "cHVibGljLWtleQ",
		Status:       keys.StatusActive,
		Metadata:     map[string]string{"role": "orchestrator", "team": "core"},
		RegisteredAt: registered,
		RotatedAt:    &rotated,
	}
	require.NoError(t, db.UpsertAgentKey(entry))

	got, err := db.GetAgentKey("atlas")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.AgentID, got.AgentID)
	assert.Equal(t, entry.PublicKey, got.PublicKey)
	assert.Equal(t, entry.Status, got.Status)
	assert.Equal(t, entry.Metadata, got.Metadata)
	assert.True(t, got.RegisteredAt.Equal(registered))
	require.NotNil(t, got.RotatedAt)
	assert.True(t, got.RotatedAt.Equal(rotated))
	assert.Nil(t, got.RevokedAt)
}

func TestGetAgentKeyMissing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.GetAgentKey("ghost")
	require.NoError(t, err)
	assert.Nil(t, got, "a missing record is (nil, nil), not an error")
}

func TestUpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.UpsertAgentKey(&keys.AgentKeyEntry{
		AgentID: "atlas", PublicKey: "a2V5LTE", Status: keys.StatusActive, RegisteredAt: now,
	}))
	require.NoError(t, db.UpsertAgentKey(&keys.AgentKeyEntry{
		AgentID: "atlas", PublicKey: "a2V5LTI", Status: keys.StatusActive, RegisteredAt: now,
	}))

	got, err := db.GetAgentKey("atlas")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a2V5LTI", got.PublicKey)
}

func TestListAgentKeysByStatus(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.UpsertAgentKey(&keys.AgentKeyEntry{
		AgentID: "atlas", PublicKey: "a2V5", Status: keys.StatusActive, RegisteredAt: now,
	}))
	require.NoError(t, db.UpsertAgentKey(&keys.AgentKeyEntry{
		AgentID: "watcher", PublicKey: "a2V5", Status: keys.StatusRevoked, RegisteredAt: now, RevokedAt: &now,
	}))

	active, err := db.ListAgentKeys(keys.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "atlas", active[0].AgentID)

	revoked, err := db.ListAgentKeys(keys.StatusRevoked)
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	assert.Equal(t, "watcher", revoked[0].AgentID)
	require.NotNil(t, revoked[0].RevokedAt)
}

func TestKeyLineageOrdering(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.RecordKeyLineage("atlas", "a2V5LTE", base))
	require.NoError(t, db.RecordKeyLineage("atlas", "a2V5LTI", base.Add(time.Hour)))
	require.NoError(t, db.RecordKeyLineage("backend_eng", "b3RoZXI", base))

	history, err := db.AgentKeyHistory("atlas")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a2V5LTE", history[0].PublicKey)
	assert.Equal(t, "a2V5LTI", history[1].PublicKey)

	empty, err := db.AgentKeyHistory("ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestKeysSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	now := time.Now().UTC()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.UpsertAgentKey(&keys.AgentKeyEntry{
		AgentID: "atlas", PublicKey: "a2V5", Status: keys.StatusActive,
		Metadata: map[string]string{"role": "orchestrator"}, RegisteredAt: now,
	}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetAgentKey("atlas")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "orchestrator", got.Metadata["role"])
}
