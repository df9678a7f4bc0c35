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

package capability

import "fmt"

// Role is the label governing what an agent may originate and administer.
type Role string

// Known agent roles.
const (
	RoleOrchestrator Role = "orchestrator"
	RoleExecutor     Role = "executor"
	RoleObserver     Role = "observer"
	RoleSecurity     Role = "security"
)

// MessageType is the kind of a secure message. The capability table maps
// each role to the set of kinds it may originate.
type MessageType string

// Known message kinds.
const (
	MessageCommand  MessageType = "COMMAND"
	MessageQuery    MessageType = "QUERY"
	MessageEvent    MessageType = "EVENT"
	MessageResponse MessageType = "RESPONSE"
	MessageAlert    MessageType = "ALERT"
)

// Action is a fine-grained administrative permission.
type Action string

// Known administrative actions.
const (
	ActionKeyRead     Action = "key:read"
	ActionKeyRegister Action = "key:register"
	ActionKeyRotate   Action = "key:rotate"
	ActionKeyRevoke   Action = "key:revoke"
	ActionAuditRead   Action = "audit:read"
	ActionAuditVerify Action = "audit:verify"
)

// roles is the closed set the tables below must cover completely.
var roles = []Role{RoleOrchestrator, RoleExecutor, RoleObserver, RoleSecurity}

// sendTable maps each role to the message kinds it may originate.
var sendTable = map[Role][]MessageType{
	RoleOrchestrator: {MessageCommand, MessageQuery, MessageEvent, MessageResponse},
	RoleExecutor:     {MessageQuery, MessageEvent, MessageResponse},
	RoleObserver:     {MessageQuery},
	RoleSecurity:     {MessageQuery, MessageEvent, MessageAlert},
}

// actionTable maps each role to the administrative actions it may perform.
var actionTable = map[Role][]Action{
	RoleOrchestrator: {ActionKeyRead, ActionKeyRegister, ActionKeyRotate, ActionKeyRevoke, ActionAuditRead},
	RoleExecutor:     {},
	RoleObserver:     {},
	RoleSecurity:     {ActionKeyRead, ActionKeyRevoke, ActionAuditRead, ActionAuditVerify},
}

// KnownRole reports whether role is a member of the closed role set.
func KnownRole(role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanSend reports whether role may originate messages of kind mt.
func CanSend(role Role, mt MessageType) bool {
	for _, allowed := range sendTable[role] {
		if allowed == mt {
			return true
		}
	}
	return false
}

// CanPerform reports whether role may perform the administrative action.
func CanPerform(role Role, action Action) bool {
	for _, allowed := range actionTable[role] {
		if allowed == action {
			return true
		}
	}
	return false
}

// Validate checks the capability tables for completeness: every known role
// must have a row in both tables. Call at startup; a missing row is a
// programming error, not a runtime condition.
func Validate() error {
	for _, r := range roles {
		if _, ok := sendTable[r]; !ok {
			return fmt.Errorf("capability: role %q missing from send table", r)
		}
		if _, ok := actionTable[r]; !ok {
			return fmt.Errorf("capability: role %q missing from action table", r)
		}
	}
	return nil
}
