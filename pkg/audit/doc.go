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

// Package audit implements the tamper-evident audit log for A2A message
// traffic.
//
// Every receive outcome, success or failure, is appended as an immutable
// Entry. Entries are partitioned by UTC calendar date, and each partition
// carries a SHA-256 checksum over the ordered canonical encodings of its
// entries. The checksum is refreshed transactionally on every append, so
// any after-the-fact edit or deletion within a partition is detectable:
//
//	log := audit.NewLog(store)
//
//	err := log.Record(ctx, audit.Entry{
//	    FromAgent:     "atlas",
//	    ToAgent:       "backend_eng",
//	    Status:        audit.StatusSuccess,
//	    CorrelationID: msg.CorrelationID,
//	})
//
//	ok, err := log.VerifyChecksum(ctx, "2025-11-03")
//
// A checksum mismatch is a detection signal for operators, not something
// the log repairs on its own. Deleting a whole partition together with its
// stored checksum is not detected; partitions are not chained to the
// previous day.
//
// Queries are paginated with an opaque cursor and ordered by timestamp
// ascending; the page size is capped at MaxQueryLimit.
package audit
