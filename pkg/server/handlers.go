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

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/audit"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/capability"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/keys"
)

// Server exposes the administrative HTTP surface for key management and
// audit queries. Every operation passes through the auth middleware before
// touching the registry or the audit log.
type Server struct {
	registry *keys.Registry
	auditLog *audit.Log
	auth     *AuthMiddleware
	logger   zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's request logger.
func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates the administrative API server.
func NewServer(registry *keys.Registry, auditLog *audit.Log, auth *AuthMiddleware, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		auditLog: auditLog,
		auth:     auth,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the handler for the administrative API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/keys", s.handleKeys)
	mux.HandleFunc("/audit", s.handleAuditQuery)
	mux.HandleFunc("/audit/verify", s.handleAuditVerify)
	return mux
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListKeys(w, r)
	case http.MethodPost:
		s.handlePostKeys(w, r)
	case http.MethodDelete:
		s.handleRevokeKey(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// keyListResponse is the GET /keys payload.
type keyListResponse struct {
	Active  []keys.AgentKeyEntry `json:"active"`
	Revoked []keys.AgentKeyEntry `json:"revoked,omitempty"`
	Total   int                  `json:"total"`
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res := s.auth.RequireAuth(r, body, []capability.Role{capability.RoleSecurity, capability.RoleOrchestrator})
	if !s.authorized(w, res) {
		return
	}

	active, err := s.registry.ListRegisteredAgents()
	if err != nil {
		s.internalError(w, err, "list registered agents")
		return
	}
	revoked, err := s.registry.ListRevokedAgents()
	if err != nil {
		s.internalError(w, err, "list revoked agents")
		return
	}

	writeJSON(w, http.StatusOK, keyListResponse{
		Active:  active,
		Revoked: revoked,
		Total:   len(active) + len(revoked),
	})
}

// postKeysRequest is the POST /keys payload.
type postKeysRequest struct {
	AgentID   string            `json:"agentId"`
	PublicKey string            `json:"publicKey,omitempty"`
	Action    string            `json:"action,omitempty"` // "generate" | "rotate" | "" (register)
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// generatedKeyResponse surfaces a generated private key exactly once; it
// is never persisted.
type generatedKeyResponse struct {
	Entry      *keys.AgentKeyEntry `json:"entry"`
	PrivateKey string              `json:"privateKey"`
}

func (s *Server) handlePostKeys(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res := s.auth.RequireAuth(r, body, []capability.Role{capability.RoleOrchestrator})
	if !s.authorized(w, res) {
		return
	}

	var req postKeysRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agentId is required")
		return
	}

	switch req.Action {
	case "generate":
		res = s.auth.RequireAction(res, capability.ActionKeyRegister)
		if !s.authorized(w, res) {
			return
		}
		pair, err := keys.GenerateKeyPair()
		if err != nil {
			s.internalError(w, err, "generate key pair")
			return
		}
		entry, err := s.registry.RegisterAgentKey(req.AgentID, pair.PublicKey, req.Metadata)
		if err != nil {
			s.registryError(w, err, "register generated key")
			return
		}
		writeJSON(w, http.StatusCreated, generatedKeyResponse{
			Entry:      entry,
			PrivateKey: keys.EncodePrivateKey(pair.PrivateKey),
		})

	case "rotate":
		res = s.auth.RequireAction(res, capability.ActionKeyRotate)
		if !s.authorized(w, res) {
			return
		}
		entry, err := s.registry.RotateAgentKey(req.AgentID, req.PublicKey, req.Metadata)
		if err != nil {
			s.registryError(w, err, "rotate key")
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case "":
		res = s.auth.RequireAction(res, capability.ActionKeyRegister)
		if !s.authorized(w, res) {
			return
		}
		entry, err := s.registry.RegisterAgentKey(req.AgentID, req.PublicKey, req.Metadata)
		if err != nil {
			s.registryError(w, err, "register key")
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res := s.auth.RequireAuth(r, body, []capability.Role{capability.RoleOrchestrator, capability.RoleSecurity})
	res = s.auth.RequireAction(res, capability.ActionKeyRevoke)
	if !s.authorized(w, res) {
		return
	}

	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agentId is required")
		return
	}

	revoked, err := s.registry.RevokeAgentKey(agentID)
	if err != nil {
		s.internalError(w, err, "revoke key")
		return
	}
	if !revoked {
		writeError(w, http.StatusNotFound, fmt.Sprintf("agent %q not found", agentID))
		return
	}

	s.logger.Info().Str("agent", agentID).Str("by", res.AgentID).Msg("key revoked")
	writeJSON(w, http.StatusOK, map[string]any{"agentId": agentID, "revoked": true})
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res := s.auth.RequireAuth(r, body, []capability.Role{capability.RoleSecurity, capability.RoleOrchestrator})
	res = s.auth.RequireAction(res, capability.ActionAuditRead)
	if !s.authorized(w, res) {
		return
	}

	q := r.URL.Query()
	startTime, err := time.Parse(time.RFC3339, q.Get("startTime"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "startTime is required (RFC3339)")
		return
	}
	endTime, err := time.Parse(time.RFC3339, q.Get("endTime"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "endTime is required (RFC3339)")
		return
	}

	filter := audit.QueryFilter{
		StartTime: startTime,
		EndTime:   endTime,
		FromAgent: q.Get("fromAgent"),
		ToAgent:   q.Get("toAgent"),
		Status:    audit.Status(q.Get("status")),
		Cursor:    q.Get("cursor"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	result, err := s.auditLog.Query(r.Context(), filter)
	if err != nil {
		s.internalError(w, err, "audit query")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// auditVerifyRequest is the POST /audit/verify payload.
type auditVerifyRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res := s.auth.RequireAuth(r, body, []capability.Role{capability.RoleSecurity})
	res = s.auth.RequireAction(res, capability.ActionAuditVerify)
	if !s.authorized(w, res) {
		return
	}

	var req auditVerifyRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	verified, err := s.auditLog.VerifyChecksum(r.Context(), req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":              req.Date,
		"integrityVerified": verified,
	})
}

// readBody drains the request body so the auth signature can cover it.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return nil, false
	}
	r.Body.Close()
	return body, true
}

// authorized writes the denial response if res is not authorized.
func (s *Server) authorized(w http.ResponseWriter, res *AuthResult) bool {
	if res.Authorized {
		return true
	}
	writeError(w, res.StatusCode, res.Error)
	return false
}

func (s *Server) internalError(w http.ResponseWriter, err error, op string) {
	s.logger.Error().Err(err).Str("op", op).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// registryError maps registry sentinel errors onto HTTP status codes.
func (s *Server) registryError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, keys.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, keys.ErrAgentRevoked), errors.Is(err, keys.ErrInvalidKey),
		errors.Is(err, keys.ErrInvalidAgentID):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.internalError(w, err, op)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
