package server

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/capability"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/keys"
)

// TimestampWindow is the maximum clock drift accepted on a signed request.
const TimestampWindow = 5 * time.Minute

// Signed request headers.
const (
	HeaderAgentID   = "X-Agent-ID"
	HeaderTimestamp = "X-Agent-Timestamp"
	HeaderSignature = "X-Agent-Signature"
)

// AuthResult is the authorization verdict for one request. StatusCode
// distinguishes unauthenticated (401) from unauthorized (403); producing
// the HTTP response is the caller's job.
type AuthResult struct {
	Authorized bool
	AgentID    string
	Role       capability.Role
	StatusCode int
	Error      string
}

// AuthMiddleware resolves caller identity from signed request headers and
// gates administrative operations by role and action. It is a pure
// authorization gate: no side effects beyond the verdict.
type AuthMiddleware struct {
	registry *keys.Registry
	window   time.Duration
	logger   zerolog.Logger
}

// AuthOption configures an AuthMiddleware.
type AuthOption func(*AuthMiddleware)

// WithTimestampWindow overrides the accepted clock drift.
func WithTimestampWindow(window time.Duration) AuthOption {
	return func(m *AuthMiddleware) { m.window = window }
}

// WithAuthLogger sets the middleware's logger.
func WithAuthLogger(logger zerolog.Logger) AuthOption {
	return func(m *AuthMiddleware) { m.logger = logger }
}

// NewAuthMiddleware creates an AuthMiddleware backed by registry.
func NewAuthMiddleware(registry *keys.Registry, opts ...AuthOption) *AuthMiddleware {
	m := &AuthMiddleware{
		registry: registry,
		window:   TimestampWindow,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignRequest adds the signed identity headers to an outgoing request. The
// signature covers method + path + timestamp + body.
func SignRequest(req *http.Request, agentID string, priv ed25519.PrivateKey, body []byte) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req.Header.Set(HeaderAgentID, agentID)
	req.Header.Set(HeaderTimestamp, ts)

	msg := req.Method + req.URL.Path + ts + string(body)
	sig := ed25519.Sign(priv, []byte(msg))
	req.Header.Set(HeaderSignature, hex.EncodeToString(sig))
}

// unauthenticated builds a 401-class verdict.
func unauthenticated(format string, args ...any) *AuthResult {
	return &AuthResult{StatusCode: http.StatusUnauthorized, Error: fmt.Sprintf(format, args...)}
}

// forbidden builds a 403-class verdict for an identified caller.
func forbidden(agentID string, role capability.Role, format string, args ...any) *AuthResult {
	return &AuthResult{
		AgentID:    agentID,
		Role:       role,
		StatusCode: http.StatusForbidden,
		Error:      fmt.Sprintf(format, args...),
	}
}

// RequireAuth verifies the request's signed identity headers against the
// key registry and checks that the caller's role is one of allowedRoles.
// body must be the full request body the signature covers.
func (m *AuthMiddleware) RequireAuth(r *http.Request, body []byte, allowedRoles []capability.Role) *AuthResult {
	agentID := r.Header.Get(HeaderAgentID)
	tsStr := r.Header.Get(HeaderTimestamp)
	sigHex := r.Header.Get(HeaderSignature)

	if agentID == "" || tsStr == "" || sigHex == "" {
		return unauthenticated("missing signed identity headers")
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return unauthenticated("invalid timestamp")
	}
	drift := math.Abs(float64(time.Now().Unix() - ts))
	if drift > m.window.Seconds() {
		return unauthenticated("timestamp expired: %.0fs drift exceeds %v window", drift, m.window)
	}

	entry, err := m.registry.GetAgentEntry(agentID)
	if err != nil {
		// Storage fault, not an identity failure; still a denial here,
		// logged for the operator.
		m.logger.Error().Err(err).Str("agent", agentID).Msg("identity lookup failed")
		return unauthenticated("identity lookup failed")
	}
	if entry == nil || entry.Status != keys.StatusActive {
		return unauthenticated("unknown or revoked agent %q", agentID)
	}

	pub, err := keys.DecodePublicKey(entry.PublicKey)
	if err != nil {
		return unauthenticated("unusable key for agent %q", agentID)
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return unauthenticated("invalid signature encoding")
	}
	msg := r.Method + r.URL.Path + tsStr + string(body)
	if !ed25519.Verify(pub, []byte(msg), sig) {
		return unauthenticated("signature verification failed")
	}

	role := capability.Role(entry.Metadata["role"])
	for _, allowed := range allowedRoles {
		if role == allowed {
			return &AuthResult{Authorized: true, AgentID: agentID, Role: role}
		}
	}
	m.logger.Warn().Str("agent", agentID).Str("role", string(role)).Msg("role not permitted")
	return forbidden(agentID, role, "role %q not permitted", role)
}

// RequireAction downgrades an authorized result to forbidden if the
// caller's role lacks the fine-grained action.
func (m *AuthMiddleware) RequireAction(res *AuthResult, action capability.Action) *AuthResult {
	if !res.Authorized {
		return res
	}
	if !capability.CanPerform(res.Role, action) {
		m.logger.Warn().Str("agent", res.AgentID).Str("role", string(res.Role)).
			Str("action", string(action)).Msg("action not permitted")
		return forbidden(res.AgentID, res.Role, "role %q lacks action %q", res.Role, action)
	}
	return res
}
