package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// KeyStatus is the lifecycle state of a registered agent key.
type KeyStatus string

const (
	// StatusActive marks the single usable key for an agent.
	StatusActive KeyStatus = "active"

	// StatusRevoked is terminal. A revoked key never verifies new messages
	// and the agent cannot be rotated back to life.
	StatusRevoked KeyStatus = "revoked"
)

// Sentinel errors returned by the registry.
var (
	// ErrAgentNotFound is returned when an operation requires a prior
	// registration that does not exist.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentRevoked is returned when an operation targets an agent whose
	// key has been revoked.
	ErrAgentRevoked = errors.New("agent key revoked")

	// ErrInvalidKey is returned when key material does not decode to a
	// valid Ed25519 public key.
	ErrInvalidKey = errors.New("invalid key material")

	// ErrInvalidAgentID is returned when an agent id is empty or contains
	// control characters. Agent ids appear verbatim in signature bases, so
	// a newline inside one could shift field boundaries.
	ErrInvalidAgentID = errors.New("invalid agent id")
)

// ValidAgentID reports whether agentID is non-empty and free of control
// characters.
func ValidAgentID(agentID string) bool {
	if agentID == "" {
		return false
	}
	for _, r := range agentID {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// AgentKeyEntry is the registry record for one agent identity.
type AgentKeyEntry struct {
	AgentID      string            `json:"agentId"`
	PublicKey    string            `json:"publicKey"`
	Status       KeyStatus         `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RegisteredAt time.Time         `json:"registeredAt"`
	RotatedAt    *time.Time        `json:"rotatedAt,omitempty"`
	RevokedAt    *time.Time        `json:"revokedAt,omitempty"`
}

// LineageEntry is one superseded public key in an agent's rotation history.
type LineageEntry struct {
	AgentID    string    `json:"agentId"`
	PublicKey  string    `json:"publicKey"`
	ReplacedAt time.Time `json:"replacedAt"`
}

// KeyPair holds a freshly generated signing key pair. The registry stores
// only the public half; the private key exists solely in this value and the
// caller is responsible for keeping it.
type KeyPair struct {
	PublicKey  string
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair generates a new Ed25519 signing key pair. The public key
// is returned in the registry's encoded form.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519 keygen: %w", err)
	}
	return &KeyPair{
		PublicKey:  EncodePublicKey(pub),
		PrivateKey: priv,
	}, nil
}

// EncodePublicKey encodes an Ed25519 public key to its base64url wire form.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}

// DecodePublicKey decodes the registry's encoded public key form. Returns
// ErrInvalidKey if the material is not a 32-byte Ed25519 public key.
func DecodePublicKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePrivateKey encodes an Ed25519 private key to base64url. Used only
// to surface a generated private key once over the administrative API.
func EncodePrivateKey(priv ed25519.PrivateKey) string {
	return base64.RawURLEncoding.EncodeToString(priv)
}

// DecodePrivateKey decodes a base64url Ed25519 private key.
func DecodePrivateKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(raw), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(raw), nil
}
