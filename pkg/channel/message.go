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

package channel

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/capability"
)

// NonceSize is the number of random bytes in a message nonce.
const NonceSize = 16

// SecureMessage is the signed envelope exchanged between agents. The
// payload is opaque to the channel: it is never parsed or type-checked, so
// the signature covers exactly the bytes that were transmitted.
type SecureMessage struct {
	From          string                 `json:"from"`
	To            string                 `json:"to"`
	Type          capability.MessageType `json:"type"`
	Payload       json.RawMessage        `json:"payload"`
	Timestamp     string                 `json:"timestamp"`
	Nonce         string                 `json:"nonce"`
	CorrelationID string                 `json:"correlationId"`
	Signature     string                 `json:"signature"`
}

// newNonce returns a fresh random nonce token.
func newNonce() (string, error) {
	b := make([]byte, NonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// signingBase builds the canonical signing input: one line per field in
// fixed order, payload last so no earlier line can contain a newline.
func signingBase(m *SecureMessage) string {
	lines := []string{
		fmt.Sprintf(`"from": %s`, m.From),
		fmt.Sprintf(`"to": %s`, m.To),
		fmt.Sprintf(`"type": %s`, m.Type),
		fmt.Sprintf(`"timestamp": %s`, m.Timestamp),
		fmt.Sprintf(`"nonce": %s`, m.Nonce),
		fmt.Sprintf(`"correlationId": %s`, m.CorrelationID),
		fmt.Sprintf(`"payload": %s`, string(m.Payload)),
	}
	return strings.Join(lines, "\n")
}

// sign computes the message signature over the canonical signing base.
func sign(m *SecureMessage, priv ed25519.PrivateKey) string {
	sig := ed25519.Sign(priv, []byte(signingBase(m)))
	return base64.RawURLEncoding.EncodeToString(sig)
}

// verifySignature checks m.Signature over the canonical signing base.
func verifySignature(m *SecureMessage, pub ed25519.PublicKey) bool {
	sig, err := base64.RawURLEncoding.DecodeString(m.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, []byte(signingBase(m)), sig)
}
