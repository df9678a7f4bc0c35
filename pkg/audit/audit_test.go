package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStore records the filter passed down by Query.
type captureStore struct {
	lastFilter StoreFilter
}

func (s *captureStore) AppendAuditEntry(ctx context.Context, e *Entry) error { return nil }

func (s *captureStore) QueryAuditEntries(ctx context.Context, f StoreFilter) ([]StoredEntry, error) {
	s.lastFilter = f
	return nil, nil
}

func (s *captureStore) AuditPartitionEntries(ctx context.Context, date string) ([]Entry, error) {
	return nil, nil
}

func (s *captureStore) StoredAuditChecksum(ctx context.Context, date string) (string, bool, error) {
	return "", false, nil
}

func TestQueryLimitIsCapped(t *testing.T) {
	store := &captureStore{}
	log := NewLog(store)
	window := QueryFilter{StartTime: time.Now().Add(-time.Hour), EndTime: time.Now()}

	f := window
	f.Limit = 50000
	_, err := log.Query(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, MaxQueryLimit+1, store.lastFilter.Limit, "limit must be capped regardless of the request")

	// Unset limit falls back to the default.
	_, err = log.Query(context.Background(), window)
	require.NoError(t, err)
	assert.Equal(t, defaultQueryLimit+1, store.lastFilter.Limit)
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := encodeCursor(12345)
	rowID, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), rowID)

	_, err = decodeCursor("@@@")
	assert.Error(t, err)
}

func TestChecksumEntriesDeterminism(t *testing.T) {
	ts := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Timestamp: ts, FromAgent: "atlas", ToAgent: "backend_eng", Status: StatusSuccess, CorrelationID: "c1"},
		{Timestamp: ts.Add(time.Minute), FromAgent: "watcher", ToAgent: "atlas", Status: StatusFailure, Reason: "nonce_reused", CorrelationID: "c2"},
	}

	first, err := ChecksumEntries(entries)
	require.NoError(t, err)
	second, err := ChecksumEntries(entries)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Any change to any field changes the digest.
	entries[1].Reason = "invalid_signature"
	third, err := ChecksumEntries(entries)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	// Order matters.
	swapped := []Entry{entries[1], entries[0]}
	fourth, err := ChecksumEntries(swapped)
	require.NoError(t, err)
	assert.NotEqual(t, third, fourth)
}

func TestPartitionDate(t *testing.T) {
	e := Entry{Timestamp: time.Date(2025, 11, 3, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))}
	// 23:30 KST is 14:30 UTC the same day; partitioning is by UTC date.
	assert.Equal(t, "2025-11-03", e.PartitionDate())

	e = Entry{Timestamp: time.Date(2025, 11, 3, 1, 30, 0, 0, time.FixedZone("KST", 9*3600))}
	// 01:30 KST is 16:30 UTC the previous day.
	assert.Equal(t, "2025-11-02", e.PartitionDate())
}
