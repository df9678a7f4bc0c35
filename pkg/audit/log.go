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

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MaxQueryLimit caps Query page sizes regardless of the requested limit.
const MaxQueryLimit = 1000

// defaultQueryLimit applies when the caller does not set a limit.
const defaultQueryLimit = 100

// StoredEntry pairs an entry with the storage row id it lives at. The row
// id is only used to build continuation cursors.
type StoredEntry struct {
	RowID int64
	Entry Entry
}

// StoreFilter is the storage-level query shape. AfterRowID restricts the
// scan to rows past a cursor position.
type StoreFilter struct {
	StartTime  time.Time
	EndTime    time.Time
	FromAgent  string
	ToAgent    string
	Status     Status
	AfterRowID int64
	Limit      int
}

// Store is the persistence contract the audit log runs on.
type Store interface {
	// AppendAuditEntry appends e to its date partition and refreshes the
	// stored partition checksum in the same transaction.
	AppendAuditEntry(ctx context.Context, e *Entry) error

	// QueryAuditEntries returns matching entries ordered by timestamp
	// ascending (row id as tie-breaker).
	QueryAuditEntries(ctx context.Context, f StoreFilter) ([]StoredEntry, error)

	// AuditPartitionEntries returns all entries of one date partition in
	// insertion order.
	AuditPartitionEntries(ctx context.Context, date string) ([]Entry, error)

	// StoredAuditChecksum returns the stored digest for a date partition;
	// ok is false if the partition has never been written.
	StoredAuditChecksum(ctx context.Context, date string) (checksum string, ok bool, err error)
}

// QueryFilter is the caller-facing query shape.
type QueryFilter struct {
	StartTime time.Time
	EndTime   time.Time
	FromAgent string
	ToAgent   string
	Status    Status
	Limit     int
	Cursor    string
}

// QueryResult is one page of audit entries. NextCursor is empty on the
// last page.
type QueryResult struct {
	Entries    []Entry `json:"entries"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// Log is the append-only, date-partitioned audit log. Appends are
// serialized through a single writer lock so insertion order, and with it
// the partition checksum, stays deterministic under concurrent writers.
type Log struct {
	store  Store
	logger zerolog.Logger

	writeMu sync.Mutex
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithLogger sets the audit log's diagnostic logger.
func WithLogger(logger zerolog.Logger) LogOption {
	return func(l *Log) { l.logger = logger }
}

// NewLog creates an audit Log backed by store.
func NewLog(store Store, opts ...LogOption) *Log {
	l := &Log{
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends e to the partition for its timestamp's calendar date.
// Entries are immutable once written. Storage faults are returned as
// errors; they are the only failure mode.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.store.AppendAuditEntry(ctx, &e); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

// Query returns a page of entries ordered by timestamp ascending. The
// limit is capped at MaxQueryLimit; the cursor is an opaque continuation
// token from a previous page.
func (l *Log) Query(ctx context.Context, f QueryFilter) (*QueryResult, error) {
	if f.StartTime.IsZero() || f.EndTime.IsZero() {
		return nil, fmt.Errorf("audit query: start and end time are required")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	var afterRowID int64
	if f.Cursor != "" {
		var err error
		afterRowID, err = decodeCursor(f.Cursor)
		if err != nil {
			return nil, err
		}
	}

	// Fetch one extra row to learn whether another page exists.
	stored, err := l.store.QueryAuditEntries(ctx, StoreFilter{
		StartTime:  f.StartTime,
		EndTime:    f.EndTime,
		FromAgent:  f.FromAgent,
		ToAgent:    f.ToAgent,
		Status:     f.Status,
		AfterRowID: afterRowID,
		Limit:      limit + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}

	result := &QueryResult{}
	if len(stored) > limit {
		stored = stored[:limit]
		result.NextCursor = encodeCursor(stored[len(stored)-1].RowID)
	}
	for _, s := range stored {
		result.Entries = append(result.Entries, s.Entry)
	}
	return result, nil
}

// VerifyChecksum recomputes the digest over all entries of the date
// partition (format "2006-01-02") and compares it to the stored value.
// A mismatch means an entry was altered or deleted after the fact. An
// empty, never-written partition verifies clean. Whole-partition deletion
// is not detected; partitions are not chained day to day.
func (l *Log) VerifyChecksum(ctx context.Context, date string) (bool, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return false, fmt.Errorf("audit verify: invalid date %q: %w", date, err)
	}

	stored, ok, err := l.store.StoredAuditChecksum(ctx, date)
	if err != nil {
		return false, fmt.Errorf("audit verify: %w", err)
	}

	entries, err := l.store.AuditPartitionEntries(ctx, date)
	if err != nil {
		return false, fmt.Errorf("audit verify: %w", err)
	}
	if !ok {
		// No checksum on record: clean only if the partition is empty too.
		return len(entries) == 0, nil
	}

	computed, err := ChecksumEntries(entries)
	if err != nil {
		return false, fmt.Errorf("audit verify: %w", err)
	}
	if computed != stored {
		l.logger.Warn().Str("date", date).Msg("audit partition checksum mismatch")
		return false, nil
	}
	return true, nil
}
