package audit

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome recorded for a send/receive transaction.
type Status string

const (
	// StatusSuccess marks a message that was delivered and verified.
	StatusSuccess Status = "success"

	// StatusFailure marks a rejected message; Reason carries the cause.
	StatusFailure Status = "failure"
)

// Entry is one immutable audit record. Entries are grouped into partitions
// by the UTC calendar date of their timestamp.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	FromAgent     string    `json:"fromAgent"`
	ToAgent       string    `json:"toAgent"`
	Status        Status    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlationId"`
}

// PartitionDate returns the UTC calendar date partition the entry belongs to.
func (e *Entry) PartitionDate() string {
	return e.Timestamp.UTC().Format("2006-01-02")
}

// canonicalEntry is the fixed-order encoding digested into the partition
// checksum. Field order is part of the on-disk contract; do not reorder.
type canonicalEntry struct {
	Timestamp     string `json:"timestamp"`
	FromAgent     string `json:"fromAgent"`
	ToAgent       string `json:"toAgent"`
	Status        Status `json:"status"`
	Reason        string `json:"reason"`
	CorrelationID string `json:"correlationId"`
}

// CanonicalEncoding returns the deterministic byte encoding of e used for
// checksum computation.
func CanonicalEncoding(e *Entry) ([]byte, error) {
	b, err := json.Marshal(canonicalEntry{
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		FromAgent:     e.FromAgent,
		ToAgent:       e.ToAgent,
		Status:        e.Status,
		Reason:        e.Reason,
		CorrelationID: e.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: canonical encode: %w", err)
	}
	return b, nil
}

// ChecksumEntries computes the partition digest over entries in order:
// lowercase hex SHA-256 of the newline-joined canonical encodings.
func ChecksumEntries(entries []Entry) (string, error) {
	h := sha256.New()
	for i := range entries {
		b, err := CanonicalEncoding(&entries[i])
		if err != nil {
			return "", err
		}
		h.Write(b)
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// encodeCursor packs the rowid of the last returned entry into an opaque
// continuation token.
func encodeCursor(rowID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("r%d", rowID)))
}

// decodeCursor unpacks a continuation token produced by encodeCursor.
func decodeCursor(cursor string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("audit: invalid cursor: %w", err)
	}
	var rowID int64
	if _, err := fmt.Sscanf(string(raw), "r%d", &rowID); err != nil {
		return 0, fmt.Errorf("audit: invalid cursor: %w", err)
	}
	return rowID, nil
}
