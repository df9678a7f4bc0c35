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

// Package capability defines the static role/capability tables for A2A
// agents.
//
// Two read-only tables are maintained: role to originable message kinds,
// and role to administrative actions. Both are process-wide configuration,
// never mutated at runtime.
//
// # Roles
//
//   - orchestrator - issues commands and manages keys
//   - executor - carries out work, reports back
//   - observer - read-only queries
//   - security - audit review and key revocation
//
// # Usage
//
//	if err := capability.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	capability.CanSend(capability.RoleObserver, capability.MessageCommand) // false
//	capability.CanPerform(capability.RoleSecurity, capability.ActionAuditVerify) // true
//
// Validate should be called once at startup so an incomplete table fails
// fast rather than surfacing as a spurious authorization denial.
package capability
