// Package jws signs and verifies the compact JWS tokens exchanged in SIOP
// requests and responses.
package jws

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
	jose "gopkg.in/square/go-jose.v2"
)

var (
	ErrMalformed        = errors.New("malformed jws")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("token expired")
	ErrNotYetValid      = errors.New("token issued in the future")
)

// Header holds the protected header fields used by SIOP
type Header struct {
	Algorithm cryptography.Algorithm
	KeyID     string
	Type      string
}

// Token is a decoded, not yet verified, compact JWS
type Token struct {
	Raw       string
	Header    Header
	Payload   []byte
	Signature []byte

	signingInput []byte
	jws          *jose.JSONWebSignature
}

// Decode parses a compact JWS without checking its signature.
func Decode(compact string) (*Token, error) {
	compact = strings.TrimSpace(compact)

	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, errors.Wrap(ErrMalformed, "expected 3 parts")
	}

	obj, err := jose.ParseSigned(compact)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	if len(obj.Signatures) != 1 {
		return nil, errors.Wrap(ErrMalformed, "expected exactly one signature")
	}

	sig := obj.Signatures[0]

	t := &Token{
		Raw: compact,
		Header: Header{
			Algorithm: cryptography.Algorithm(sig.Protected.Algorithm),
			KeyID:     sig.Protected.KeyID,
		},
		Payload:      obj.UnsafePayloadWithoutVerification(),
		Signature:    sig.Signature,
		signingInput: []byte(parts[0] + "." + parts[1]),
		jws:          obj,
	}

	if typ, ok := sig.Protected.ExtraHeaders[jose.HeaderType].(string); ok {
		t.Header.Type = typ
	}

	return t, nil
}

// Claims unmarshals the payload into v
func (t *Token) Claims(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return errors.Wrap(ErrMalformed, err.Error())
	}
	return nil
}

// ClaimMap returns the payload as a generic claim set
func (t *Token) ClaimMap() (map[string]interface{}, error) {
	m := map[string]interface{}{}
	return m, t.Claims(&m)
}

// SigningInput is the base64url header and payload joined by "."
func (t *Token) SigningInput() []byte {
	return t.signingInput
}

// TimeClaims are the registered time claims checked on verification
type TimeClaims struct {
	IssuedAt  int64 `json:"iat,omitempty"`
	ExpiresAt int64 `json:"exp,omitempty"`
}

// CheckTimes rejects tokens whose exp has passed or whose iat is further in
// the future than leeway.
func (t *Token) CheckTimes(now time.Time, leeway time.Duration) error {
	tc := TimeClaims{}
	if err := t.Claims(&tc); err != nil {
		return err
	}

	if tc.ExpiresAt != 0 && now.Add(-leeway).Unix() > tc.ExpiresAt {
		return errors.Wrapf(ErrExpired, "exp %d", tc.ExpiresAt)
	}

	if tc.IssuedAt != 0 && now.Add(leeway).Unix() < tc.IssuedAt {
		return errors.Wrapf(ErrNotYetValid, "iat %d", tc.IssuedAt)
	}

	return nil
}
