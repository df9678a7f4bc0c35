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

package audit_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/audit"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/storage"
)

func newTestLog(t *testing.T) (*audit.Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return audit.NewLog(db), path
}

func entryAt(ts time.Time, from, to string, status audit.Status, reason string) audit.Entry {
	return audit.Entry{
		Timestamp:     ts,
		FromAgent:     from,
		ToAgent:       to,
		Status:        status,
		Reason:        reason,
		CorrelationID: fmt.Sprintf("corr-%d", ts.UnixNano()),
	}
}

func TestRecordAndQuery(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Record(ctx, entryAt(base, "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(base.Add(time.Minute), "backend_eng", "atlas", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(base.Add(2*time.Minute), "atlas", "backend_eng", audit.StatusFailure, "nonce_reused")))

	result, err := log.Query(ctx, audit.QueryFilter{
		StartTime: base.Add(-time.Hour),
		EndTime:   base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)
	assert.Empty(t, result.NextCursor)

	// Ascending by timestamp.
	for i := 1; i < len(result.Entries); i++ {
		assert.False(t, result.Entries[i].Timestamp.Before(result.Entries[i-1].Timestamp))
	}
}

func TestQueryFilters(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Record(ctx, entryAt(base, "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(base.Add(time.Minute), "watcher", "atlas", audit.StatusFailure, "invalid_signature")))

	window := audit.QueryFilter{StartTime: base.Add(-time.Hour), EndTime: base.Add(time.Hour)}

	t.Run("by fromAgent", func(t *testing.T) {
		f := window
		f.FromAgent = "watcher"
		result, err := log.Query(ctx, f)
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "watcher", result.Entries[0].FromAgent)
	})

	t.Run("by toAgent", func(t *testing.T) {
		f := window
		f.ToAgent = "backend_eng"
		result, err := log.Query(ctx, f)
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
	})

	t.Run("by status", func(t *testing.T) {
		f := window
		f.Status = audit.StatusFailure
		result, err := log.Query(ctx, f)
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "invalid_signature", result.Entries[0].Reason)
	})

	t.Run("by time window", func(t *testing.T) {
		f := window
		f.EndTime = base.Add(30 * time.Second)
		result, err := log.Query(ctx, f)
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
	})

	t.Run("missing window is an error", func(t *testing.T) {
		_, err := log.Query(ctx, audit.QueryFilter{})
		assert.Error(t, err)
	})
}

func TestQueryPagination(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, log.Record(ctx, entryAt(base.Add(time.Duration(i)*time.Second), "atlas", "backend_eng", audit.StatusSuccess, "")))
	}

	window := audit.QueryFilter{
		StartTime: base.Add(-time.Hour),
		EndTime:   base.Add(time.Hour),
		Limit:     10,
	}

	var got []audit.Entry
	cursor := ""
	pages := 0
	for {
		f := window
		f.Cursor = cursor
		result, err := log.Query(ctx, f)
		require.NoError(t, err)
		got = append(got, result.Entries...)
		pages++
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, got, 25)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "pages must preserve ascending order")
	}
}

func TestQueryFractionalSecondBoundaries(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	// Entries carry nanosecond timestamps while query bounds are typically
	// whole seconds; fractional entries inside a boundary second must still
	// match the range.
	inWindow := time.Date(2026, 9, 1, 10, 0, 0, 300_000_000, time.UTC)
	pastEnd := time.Date(2026, 9, 1, 10, 0, 5, 400_000_000, time.UTC)
	require.NoError(t, log.Record(ctx, entryAt(inWindow, "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(pastEnd, "atlas", "backend_eng", audit.StatusSuccess, "")))

	result, err := log.Query(ctx, audit.QueryFilter{
		StartTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 1, 10, 0, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.True(t, result.Entries[0].Timestamp.Equal(inWindow))
}

func TestQueryRejectsBadCursor(t *testing.T) {
	log, _ := newTestLog(t)
	_, err := log.Query(context.Background(), audit.QueryFilter{
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now(),
		Cursor:    "not a cursor",
	})
	assert.Error(t, err)
}

func TestVerifyChecksumCleanPartition(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	ts := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Record(ctx, entryAt(ts, "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(ts.Add(time.Minute), "atlas", "backend_eng", audit.StatusFailure, "wrong_recipient")))

	ok, err := log.VerifyChecksum(ctx, "2025-11-03")
	require.NoError(t, err)
	assert.True(t, ok, "untouched partition must verify")

	// A partition never written to verifies clean as well.
	ok, err = log.VerifyChecksum(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyChecksumDetectsTampering(t *testing.T) {
	log, path := newTestLog(t)
	ctx := context.Background()

	ts := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Record(ctx, entryAt(ts, "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(ts.Add(time.Minute), "watcher", "atlas", audit.StatusFailure, "invalid_signature")))

	// Edit an entry behind the log's back.
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`UPDATE audit_entries SET status = 'success', reason = '' WHERE reason = 'invalid_signature'`)
	require.NoError(t, err)

	ok, err := log.VerifyChecksum(ctx, "2025-11-03")
	require.NoError(t, err)
	assert.False(t, ok, "altered entry must break the partition checksum")
}

func TestVerifyChecksumDetectsDeletion(t *testing.T) {
	log, path := newTestLog(t)
	ctx := context.Background()

	ts := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(ctx, entryAt(ts.Add(time.Duration(i)*time.Minute), "atlas", "backend_eng", audit.StatusSuccess, "")))
	}

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`DELETE FROM audit_entries WHERE id = (SELECT MIN(id) FROM audit_entries)`)
	require.NoError(t, err)

	ok, err := log.VerifyChecksum(ctx, "2025-11-03")
	require.NoError(t, err)
	assert.False(t, ok, "deleted entry must break the partition checksum")
}

func TestVerifyChecksumInvalidDate(t *testing.T) {
	log, _ := newTestLog(t)
	_, err := log.VerifyChecksum(context.Background(), "03/11/2025")
	assert.Error(t, err)
}

func TestPartitionsAreIndependent(t *testing.T) {
	log, path := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, entryAt(time.Date(2025, 11, 2, 23, 59, 0, 0, time.UTC), "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, log.Record(ctx, entryAt(time.Date(2025, 11, 3, 0, 1, 0, 0, time.UTC), "atlas", "backend_eng", audit.StatusSuccess, "")))

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`UPDATE audit_entries SET to_agent = 'intruder' WHERE partition_date = '2025-11-02'`)
	require.NoError(t, err)

	ok, err := log.VerifyChecksum(ctx, "2025-11-02")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = log.VerifyChecksum(ctx, "2025-11-03")
	require.NoError(t, err)
	assert.True(t, ok, "tampering one partition must not implicate another")
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()
	ts := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

	db, err := storage.Open(path)
	require.NoError(t, err)
	log := audit.NewLog(db)
	require.NoError(t, log.Record(ctx, entryAt(ts, "atlas", "backend_eng", audit.StatusSuccess, "")))
	require.NoError(t, db.Close())

	db, err = storage.Open(path)
	require.NoError(t, err)
	defer db.Close()
	log = audit.NewLog(db)

	result, err := log.Query(ctx, audit.QueryFilter{StartTime: ts.Add(-time.Hour), EndTime: ts.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 1)

	ok, err := log.VerifyChecksum(ctx, "2025-11-03")
	require.NoError(t, err)
	assert.True(t, ok)
}
