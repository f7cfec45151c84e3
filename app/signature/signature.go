// Package signature implements the keyed digest shared by outbound gateway
// requests and inbound callbacks. An attacker without the secret cannot forge
// either direction; that symmetry is the security boundary.
package signature

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

type Engine struct {
	keyIndex string
}

// NewEngine builds an engine that suffixes digests with the configured key
// index, so the gateway can route verification to the right shared secret
// during key rotation.
func NewEngine(keyIndex string) *Engine {
	return &Engine{keyIndex: strings.TrimSpace(keyIndex)}
}

// Sign serializes payload deterministically, concatenates
// base64(payload) + endpointPath + secret, hashes with SHA-256, and
// hex-encodes. The key-index suffix is appended after a dash.
func (e *Engine) Sign(payload any, endpointPath, secret string) (string, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(canonical)
	sum := sha256.Sum256([]byte(encoded + endpointPath + secret))

	digest := hex.EncodeToString(sum[:])
	if e.keyIndex != "" {
		digest += "-" + e.keyIndex
	}
	return digest, nil
}

// Verify recomputes the digest and compares in constant time.
func (e *Engine) Verify(payload any, endpointPath, secret, candidate string) bool {
	expected, err := e.Sign(payload, endpointPath, secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}

// canonicalJSON re-marshals through an order-insensitive representation so
// equal payloads always produce identical bytes: encoding/json sorts map keys,
// and json.Number preserves integer formatting.
func canonicalJSON(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var normalized any
	if err := decoder.Decode(&normalized); err != nil {
		return nil, err
	}

	return json.Marshal(normalized)
}
