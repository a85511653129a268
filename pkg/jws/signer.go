package jws

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
	jose "gopkg.in/square/go-jose.v2"
)

const typeJWT = "JWT"

// Signer produces compact JWS tokens over a payload
type Signer interface {
	Algorithm() cryptography.Algorithm
	KeyID() string
	Sign(ctx context.Context, payload []byte) (string, error)
}

// Sign marshals claims as JSON and signs them with s
func Sign(ctx context.Context, claims interface{}, s Signer) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Wrap(err, "marshalling claims")
	}

	return s.Sign(ctx, payload)
}

// KeySigner signs with a private key held in process
type KeySigner struct {
	key crypto.PrivateKey
	alg cryptography.Algorithm
	kid string
}

var _ Signer = (*KeySigner)(nil)

// NewKeySigner checks that key suits alg. An empty alg is derived from the key.
func NewKeySigner(key crypto.PrivateKey, alg cryptography.Algorithm, kid string) (*KeySigner, error) {
	if alg == "" {
		a, err := cryptography.AlgorithmForKey(key)
		if err != nil {
			return nil, err
		}
		alg = a
	}

	if err := cryptography.CheckKey(alg, key); err != nil {
		return nil, err
	}

	return &KeySigner{key: key, alg: alg, kid: kid}, nil
}

func (s *KeySigner) Algorithm() cryptography.Algorithm {
	return s.alg
}

func (s *KeySigner) KeyID() string {
	return s.kid
}

// Public returns the public half of the signing key
func (s *KeySigner) Public() crypto.PublicKey {
	pub, _ := cryptography.PublicKey(s.key)
	return pub
}

func (s *KeySigner) Sign(_ context.Context, payload []byte) (string, error) {
	key := interface{}(s.key)

	if ec, ok := s.key.(*ecdsa.PrivateKey); ok && cryptography.IsSecp256k1(&ec.PublicKey) {
		key = &secp256k1Signer{ec}
	}

	return signCompact(payload, s.alg, s.kid, key)
}

func signCompact(payload []byte, alg cryptography.Algorithm, kid string, key interface{}) (string, error) {
	opts := (&jose.SignerOptions{}).WithType(typeJWT)
	if kid != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), kid)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.SignatureAlgorithm(alg), Key: key}, opts)
	if err != nil {
		return "", errors.Wrap(err, "creating signer")
	}

	obj, err := signer.Sign(payload)
	if err != nil {
		return "", errors.Wrap(err, "signing")
	}

	return obj.CompactSerialize()
}

// secp256k1Signer lets go-jose produce ES256K signatures, which it has no
// native support for.
type secp256k1Signer struct {
	key *ecdsa.PrivateKey
}

func (s *secp256k1Signer) Public() *jose.JSONWebKey {
	return nil
}

func (s *secp256k1Signer) Algs() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{jose.SignatureAlgorithm(cryptography.ES256K)}
}

func (s *secp256k1Signer) SignPayload(payload []byte, _ jose.SignatureAlgorithm) ([]byte, error) {
	return cryptography.SignES256K(s.key, payload)
}
