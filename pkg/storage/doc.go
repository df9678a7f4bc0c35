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

// Package storage provides the SQLite persistence layer for the A2A secure
// channel core: agent key records with rotation lineage, audit entries,
// and per-partition audit checksums.
//
// DB implements both keys.Store and audit.Store:
//
//	db, err := storage.Open("statusclaw.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	registry := keys.NewRegistry(db)
//	auditLog := audit.NewLog(db)
//
// Audit appends run in a transaction that also refreshes the partition
// checksum, keeping entry rows and their digest consistent on disk.
// Private keys are never written to storage.
package storage
