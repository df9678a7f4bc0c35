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

package keys

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store is the persistence contract the registry runs on. A missing record
// is reported as (nil, nil), not an error; only storage faults are errors.
type Store interface {
	// UpsertAgentKey creates or replaces the record for entry.AgentID.
	UpsertAgentKey(entry *AgentKeyEntry) error

	// GetAgentKey returns the record for agentID, or (nil, nil) if none.
	GetAgentKey(agentID string) (*AgentKeyEntry, error)

	// ListAgentKeys returns all records with the given status.
	ListAgentKeys(status KeyStatus) ([]AgentKeyEntry, error)

	// RecordKeyLineage appends a superseded public key to the agent's
	// rotation history.
	RecordKeyLineage(agentID, publicKey string, replacedAt time.Time) error

	// AgentKeyHistory returns the rotation history for agentID, oldest
	// first.
	AgentKeyHistory(agentID string) ([]LineageEntry, error)
}

// Registry is the authoritative agent identity store. Mutations for the
// same agent are serialized through a per-agent lock so concurrent
// rotate/revoke cannot lose updates.
type Registry struct {
	store  Store
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  store,
		logger: zerolog.Nop(),
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// agentLock returns the mutation lock for agentID, creating it on first use.
func (r *Registry) agentLock(agentID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[agentID] = l
	}
	return l
}

// RegisterAgentKey creates or overwrites the active entry for agentID.
// Re-registering an active agent replaces its key and metadata; a revoked
// agent fails with ErrAgentRevoked, since revocation is terminal and
// re-registration would amount to un-revoking. Malformed key material fails
// with ErrInvalidKey, and agent ids with control characters fail with
// ErrInvalidAgentID.
func (r *Registry) RegisterAgentKey(agentID, publicKey string, metadata map[string]string) (*AgentKeyEntry, error) {
	if !ValidAgentID(agentID) {
		return nil, fmt.Errorf("register %q: %w", agentID, ErrInvalidAgentID)
	}
	if _, err := DecodePublicKey(publicKey); err != nil {
		return nil, fmt.Errorf("register %s: %w", agentID, err)
	}

	l := r.agentLock(agentID)
	l.Lock()
	defer l.Unlock()

	prev, err := r.store.GetAgentKey(agentID)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", agentID, err)
	}
	if prev != nil && prev.Status == StatusRevoked {
		return nil, fmt.Errorf("register %s: %w", agentID, ErrAgentRevoked)
	}

	entry := &AgentKeyEntry{
		AgentID:      agentID,
		PublicKey:    publicKey,
		Status:       StatusActive,
		Metadata:     metadata,
		RegisteredAt: time.Now().UTC(),
	}
	if prev != nil && prev.PublicKey != publicKey {
		if err := r.store.RecordKeyLineage(agentID, prev.PublicKey, entry.RegisteredAt); err != nil {
			return nil, fmt.Errorf("register %s: %w", agentID, err)
		}
	}
	if err := r.store.UpsertAgentKey(entry); err != nil {
		return nil, fmt.Errorf("register %s: %w", agentID, err)
	}

	r.logger.Info().Str("agent", agentID).Bool("replaced", prev != nil).Msg("agent key registered")
	return entry, nil
}

// RotateAgentKey replaces agentID's public key, recording RotatedAt and
// preserving lineage. Rotation never creates: an unknown agent fails with
// ErrAgentNotFound, and a revoked agent fails with ErrAgentRevoked.
func (r *Registry) RotateAgentKey(agentID, newPublicKey string, metadata map[string]string) (*AgentKeyEntry, error) {
	if _, err := DecodePublicKey(newPublicKey); err != nil {
		return nil, fmt.Errorf("rotate %s: %w", agentID, err)
	}

	l := r.agentLock(agentID)
	l.Lock()
	defer l.Unlock()

	prev, err := r.store.GetAgentKey(agentID)
	if err != nil {
		return nil, fmt.Errorf("rotate %s: %w", agentID, err)
	}
	if prev == nil {
		return nil, fmt.Errorf("rotate %s: %w", agentID, ErrAgentNotFound)
	}
	if prev.Status == StatusRevoked {
		return nil, fmt.Errorf("rotate %s: %w", agentID, ErrAgentRevoked)
	}

	now := time.Now().UTC()
	entry := &AgentKeyEntry{
		AgentID:      agentID,
		PublicKey:    newPublicKey,
		Status:       StatusActive,
		Metadata:     metadata,
		RegisteredAt: prev.RegisteredAt,
		RotatedAt:    &now,
	}
	if entry.Metadata == nil {
		entry.Metadata = prev.Metadata
	}
	if err := r.store.RecordKeyLineage(agentID, prev.PublicKey, now); err != nil {
		return nil, fmt.Errorf("rotate %s: %w", agentID, err)
	}
	if err := r.store.UpsertAgentKey(entry); err != nil {
		return nil, fmt.Errorf("rotate %s: %w", agentID, err)
	}

	r.logger.Info().Str("agent", agentID).Msg("agent key rotated")
	return entry, nil
}

// RevokeAgentKey marks agentID's key revoked. Returns false if the agent is
// unknown; revoking an already-revoked agent is a true no-op.
func (r *Registry) RevokeAgentKey(agentID string) (bool, error) {
	l := r.agentLock(agentID)
	l.Lock()
	defer l.Unlock()

	entry, err := r.store.GetAgentKey(agentID)
	if err != nil {
		return false, fmt.Errorf("revoke %s: %w", agentID, err)
	}
	if entry == nil {
		return false, nil
	}
	if entry.Status == StatusRevoked {
		return true, nil
	}

	now := time.Now().UTC()
	entry.Status = StatusRevoked
	entry.RevokedAt = &now
	if err := r.store.UpsertAgentKey(entry); err != nil {
		return false, fmt.Errorf("revoke %s: %w", agentID, err)
	}

	r.logger.Info().Str("agent", agentID).Msg("agent key revoked")
	return true, nil
}

// GetAgentPublicKey returns the active public key for agentID. Unknown and
// revoked agents both report ("", false); revoked keys must not verify new
// messages.
func (r *Registry) GetAgentPublicKey(agentID string) (string, bool) {
	entry, err := r.store.GetAgentKey(agentID)
	if err != nil {
		r.logger.Error().Err(err).Str("agent", agentID).Msg("key lookup failed")
		return "", false
	}
	if entry == nil || entry.Status != StatusActive {
		return "", false
	}
	return entry.PublicKey, true
}

// GetAgentEntry returns the full registry record for agentID regardless of
// status, or (nil, nil) if unknown.
func (r *Registry) GetAgentEntry(agentID string) (*AgentKeyEntry, error) {
	return r.store.GetAgentKey(agentID)
}

// ListRegisteredAgents returns a snapshot of all active entries.
func (r *Registry) ListRegisteredAgents() ([]AgentKeyEntry, error) {
	return r.store.ListAgentKeys(StatusActive)
}

// ListRevokedAgents returns a snapshot of all revoked entries.
func (r *Registry) ListRevokedAgents() ([]AgentKeyEntry, error) {
	return r.store.ListAgentKeys(StatusRevoked)
}

// KeyHistory returns agentID's superseded public keys, oldest first.
func (r *Registry) KeyHistory(agentID string) ([]LineageEntry, error) {
	return r.store.AgentKeyHistory(agentID)
}
