package channel

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/audit"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/capability"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/keys"
)

// Validation failure reasons carried in ReceiveResult.Error. Replay and
// misdirection are expected adversarial conditions, so they are results
// the caller branches on, never Go errors.
const (
	ReasonWrongRecipient   = "wrong_recipient"
	ReasonUnknownSender    = "unknown_sender"
	ReasonInvalidSignature = "invalid_signature"
	ReasonNonceReused      = "nonce_reused"
)

// Sentinel errors for channel operations.
var (
	// ErrUnknownAgent is returned when a channel is created for, or an
	// operation targets, an agent with no active registry entry.
	ErrUnknownAgent = errors.New("no public key found for agent")

	// ErrUnauthorized is returned when the channel's role may not
	// originate the requested message type.
	ErrUnauthorized = errors.New("role not authorized for message type")
)

// Directory resolves agent identities. Satisfied by *keys.Registry.
type Directory interface {
	GetAgentPublicKey(agentID string) (string, bool)
}

// ReplayGuard is the atomic nonce check the receive path depends on.
// Satisfied by *nonce.Cache.
type ReplayGuard interface {
	CheckAndRecord(agentID, nonce string) bool
}

// Auditor records receive outcomes. Satisfied by *audit.Log.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// ReceiveResult is the structured outcome of Receive. Valid is false for
// any validation failure, with Error naming the reason.
type ReceiveResult struct {
	Valid bool            `json:"valid"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Stats is a snapshot of per-channel counters.
type Stats struct {
	MessagesSent     int64      `json:"messagesSent"`
	MessagesReceived int64      `json:"messagesReceived"`
	AuthFailures     int64      `json:"authFailures"`
	LastActivity     *time.Time `json:"lastActivity,omitempty"`
}

// Config binds a SecureChannel to one agent identity.
type Config struct {
	AgentID    string
	PrivateKey ed25519.PrivateKey
	Role       capability.Role
	Logger     zerolog.Logger
}

// SecureChannel produces and validates signed messages for one agent. The
// channel holds no revocable state of its own: agent validity is
// re-checked against the registry on every operation, so revocation takes
// effect immediately without invalidating in-memory channels.
type SecureChannel struct {
	agentID    string
	privateKey ed25519.PrivateKey
	role       capability.Role

	directory Directory
	replay    ReplayGuard
	auditor   Auditor
	logger    zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a SecureChannel bound to cfg.AgentID. Fails with
// ErrUnknownAgent if the agent has no active registry entry (unknown or
// revoked).
func New(directory Directory, replay ReplayGuard, auditor Auditor, cfg Config) (*SecureChannel, error) {
	if _, ok := directory.GetAgentPublicKey(cfg.AgentID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, cfg.AgentID)
	}
	if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("channel %s: private key must be %d bytes", cfg.AgentID, ed25519.PrivateKeySize)
	}

	return &SecureChannel{
		agentID:    cfg.AgentID,
		privateKey: cfg.PrivateKey,
		role:       cfg.Role,
		directory:  directory,
		replay:     replay,
		auditor:    auditor,
		logger:     cfg.Logger,
	}, nil
}

// AgentID returns the identity this channel is bound to.
func (c *SecureChannel) AgentID() string {
	return c.agentID
}

// Send builds and signs a SecureMessage addressed to toAgentID. The
// capability check runs before any message is constructed or signed;
// a role without send rights for msgType fails with ErrUnauthorized.
// Delivery transport is the caller's concern.
func (c *SecureChannel) Send(toAgentID string, msgType capability.MessageType, payload json.RawMessage) (*SecureMessage, error) {
	if !capability.CanSend(c.role, msgType) {
		return nil, fmt.Errorf("%w: role %s, type %s", ErrUnauthorized, c.role, msgType)
	}
	if _, ok := c.directory.GetAgentPublicKey(c.agentID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, c.agentID)
	}

	n, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	if payload == nil {
		payload = json.RawMessage("null")
	}

	msg := &SecureMessage{
		From:          c.agentID,
		To:            toAgentID,
		Type:          msgType,
		Payload:       payload,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Nonce:         n,
		CorrelationID: uuid.NewString(),
	}
	msg.Signature = sign(msg, c.privateKey)

	now := time.Now().UTC()
	c.mu.Lock()
	c.stats.MessagesSent++
	c.stats.LastActivity = &now
	c.mu.Unlock()

	c.logger.Debug().Str("to", toAgentID).Str("type", string(msgType)).
		Str("correlationId", msg.CorrelationID).Msg("message signed")
	return msg, nil
}

// Receive validates a message addressed to this channel's agent and, on
// success, hands back its payload. Validation failures are reported in the
// result, never as an error; the returned error is reserved for storage
// faults from the audit log.
//
// Check order is deliberate: recipient match and sender lookup are cheap
// and run before the signature, and the nonce is burned only after the
// signature is proven authentic, so a forged message cannot consume a
// victim's nonce.
func (c *SecureChannel) Receive(ctx context.Context, msg *SecureMessage) (*ReceiveResult, error) {
	if msg.To != c.agentID {
		return c.reject(ctx, msg, ReasonWrongRecipient)
	}

	encoded, ok := c.directory.GetAgentPublicKey(msg.From)
	if !ok {
		return c.reject(ctx, msg, ReasonUnknownSender)
	}
	pub, err := keys.DecodePublicKey(encoded)
	if err != nil {
		return c.reject(ctx, msg, ReasonUnknownSender)
	}

	if !verifySignature(msg, pub) {
		return c.reject(ctx, msg, ReasonInvalidSignature)
	}

	if !c.replay.CheckAndRecord(msg.From, msg.Nonce) {
		return c.reject(ctx, msg, ReasonNonceReused)
	}

	now := time.Now().UTC()
	c.mu.Lock()
	c.stats.MessagesReceived++
	c.stats.LastActivity = &now
	c.mu.Unlock()

	if err := c.auditor.Record(ctx, audit.Entry{
		Timestamp:     now,
		FromAgent:     msg.From,
		ToAgent:       msg.To,
		Status:        audit.StatusSuccess,
		CorrelationID: msg.CorrelationID,
	}); err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	return &ReceiveResult{Valid: true, Data: msg.Payload}, nil
}

// reject records a validation failure and returns the structured result.
func (c *SecureChannel) reject(ctx context.Context, msg *SecureMessage, reason string) (*ReceiveResult, error) {
	now := time.Now().UTC()
	c.mu.Lock()
	c.stats.AuthFailures++
	c.stats.LastActivity = &now
	c.mu.Unlock()

	c.logger.Warn().Str("from", msg.From).Str("to", msg.To).
		Str("reason", reason).Str("correlationId", msg.CorrelationID).
		Msg("message rejected")

	if err := c.auditor.Record(ctx, audit.Entry{
		Timestamp:     now,
		FromAgent:     msg.From,
		ToAgent:       msg.To,
		Status:        audit.StatusFailure,
		Reason:        reason,
		CorrelationID: msg.CorrelationID,
	}); err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	return &ReceiveResult{Valid: false, Error: reason}, nil
}

// VerifyAgent reports whether agentID has an active registry entry.
func (c *SecureChannel) VerifyAgent(agentID string) bool {
	_, ok := c.directory.GetAgentPublicKey(agentID)
	return ok
}

// GetStats returns a snapshot of the channel's counters.
func (c *SecureChannel) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStats zeroes all counters and clears the last-activity mark.
// Subsequent GetStats reflects only post-reset activity.
func (c *SecureChannel) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}
