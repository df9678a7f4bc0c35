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

// Package keys implements the agent key registry: the authoritative mapping
// from agent identifier to its current Ed25519 public key and lifecycle
// status.
//
// # Lifecycle
//
// Each agent has at most one active key. Registration creates or replaces
// it, rotation replaces it while recording RotatedAt and lineage, and
// revocation is terminal:
//
//	registry := keys.NewRegistry(store)
//
//	pair, _ := keys.GenerateKeyPair()
//	entry, err := registry.RegisterAgentKey("atlas", pair.PublicKey,
//	    map[string]string{"role": "orchestrator"})
//
//	// Later: rotate to a fresh key. Fails with ErrAgentNotFound if the
//	// agent was never registered - rotation never creates.
//	next, _ := keys.GenerateKeyPair()
//	entry, err = registry.RotateAgentKey("atlas", next.PublicKey, nil)
//
//	// Terminal. GetAgentPublicKey reports ("", false) from here on, and
//	// neither re-registration nor rotation brings the agent back.
//	ok, err := registry.RevokeAgentKey("atlas")
//
// The registry never stores private keys. GenerateKeyPair returns the
// private half exactly once; persisting it is the caller's problem.
//
// # Concurrency
//
// Mutations for the same agent are serialized through a per-agent lock, so
// a rotate racing a revoke cannot resurrect a revoked key. Lookups read the
// backing store directly and are safe to call from any goroutine.
package keys
