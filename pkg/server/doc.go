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

// Package server provides the authentication middleware and administrative
// HTTP surface for the A2A secure channel core.
//
// # Request authentication
//
// Callers identify themselves with Ed25519-signed headers:
//
//	X-Agent-ID: atlas
//	X-Agent-Timestamp: 1762171200
//	X-Agent-Signature: <hex, over method+path+timestamp+body>
//
// SignRequest produces these headers for an outgoing request. The
// middleware verifies them against the caller's active registry key (a
// revoked key authenticates nothing), applies a clock-drift window, and
// reads the caller's role from the registry entry metadata:
//
//	auth := server.NewAuthMiddleware(registry)
//	res := auth.RequireAuth(r, body, []capability.Role{capability.RoleSecurity})
//	res = auth.RequireAction(res, capability.ActionAuditVerify)
//
// RequireAuth and RequireAction are pure gates: they produce a verdict
// with a 401/403-class status hint and leave response writing to the
// caller.
//
// # Administrative API
//
//	GET    /keys                 security, orchestrator
//	POST   /keys                 orchestrator (register | generate | rotate)
//	DELETE /keys?agentId=...     orchestrator, security; action key:revoke
//	GET    /audit                security, orchestrator; startTime/endTime required
//	POST   /audit/verify         security; action audit:verify
//
// POST /keys with action "generate" returns the generated private key in
// the response exactly once; it is never persisted anywhere.
package server
