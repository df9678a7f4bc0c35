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

// Package channel implements the agent-to-agent secure channel: signed,
// replay-protected, role-scoped message exchange.
//
// A SecureChannel is bound to one agent identity and its Ed25519 private
// key. Send produces a signed SecureMessage; Receive validates one
// addressed to this agent:
//
//	ch, err := channel.New(registry, nonceCache, auditLog, channel.Config{
//	    AgentID:    "atlas",
//	    PrivateKey: pair.PrivateKey,
//	    Role:       capability.RoleOrchestrator,
//	})
//
//	msg, err := ch.Send("backend_eng", capability.MessageCommand,
//	    json.RawMessage(`{"task":"deploy"}`))
//
//	// On the recipient side:
//	result, err := peer.Receive(ctx, msg)
//	if !result.Valid {
//	    // result.Error is one of wrong_recipient, unknown_sender,
//	    // invalid_signature, nonce_reused
//	}
//
// # Verification order
//
// Receive checks recipient match, then sender key lookup, then the
// signature, then nonce freshness. The cheap non-cryptographic checks run
// first, and the nonce is consumed only after the signature proves the
// message authentic - an attacker cannot burn a victim's nonce with a
// forged message.
//
// # Message signing
//
// The signature covers a canonical line-per-field encoding with the opaque
// payload last:
//
//	"from": atlas
//	"to": backend_eng
//	"type": COMMAND
//	"timestamp": 2025-11-03T12:00:00Z
//	"nonce": <base64url>
//	"correlationId": <uuid v4>
//	"payload": {"task":"deploy"}
//
// The payload is never parsed by the channel; structural validation of its
// contents belongs to the caller.
//
// Validation failures (replay, misdirection, bad signatures) are routine
// adversarial conditions and come back as structured results. Only storage
// faults from the audit log surface as errors.
package channel
