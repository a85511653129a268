package cryptography

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"

	"github.com/pkg/errors"
)

// Algorithm is a JWS signing algorithm name.
type Algorithm string

const (
	EdDSA  Algorithm = "EdDSA"
	ES256  Algorithm = "ES256"
	ES256K Algorithm = "ES256K"
	RS256  Algorithm = "RS256"
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrAlgorithmKeyMismatch = errors.New("algorithm does not match key type")
)

// ParseAlgorithm accepts the algorithm names in their canonical spelling.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case EdDSA, ES256, ES256K, RS256:
		return a, nil
	}

	return "", errors.Wrapf(ErrUnsupportedAlgorithm, "%q", s)
}

// AlgorithmForKey picks the single algorithm a key type can sign or verify with.
func AlgorithmForKey(key interface{}) (Algorithm, error) {
	switch k := key.(type) {
	case ed25519.PublicKey, ed25519.PrivateKey:
		return EdDSA, nil
	case *rsa.PublicKey, *rsa.PrivateKey:
		return RS256, nil
	case *ecdsa.PrivateKey:
		return AlgorithmForKey(&k.PublicKey)
	case *ecdsa.PublicKey:
		if IsSecp256k1(k) {
			return ES256K, nil
		}
		if k.Curve == elliptic.P256() {
			return ES256, nil
		}
		return "", errors.Wrapf(ErrUnsupportedAlgorithm, "curve %s", k.Curve.Params().Name)
	}

	return "", errors.Wrapf(ErrUnsupportedAlgorithm, "key type %T", key)
}

// CheckKey makes sure key can be used with alg.
func CheckKey(alg Algorithm, key interface{}) error {
	got, err := AlgorithmForKey(key)
	if err != nil {
		return err
	}
	if got != alg {
		return errors.Wrapf(ErrAlgorithmKeyMismatch, "%s key used with %s", got, alg)
	}
	return nil
}

// PublicKey returns the public half of a supported private key.
func PublicKey(priv crypto.PrivateKey) (crypto.PublicKey, error) {
	switch k := priv.(type) {
	case ed25519.PrivateKey:
		return k.Public(), nil
	case *ecdsa.PrivateKey:
		return &k.PublicKey, nil
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	}

	return nil, errors.Errorf("unsupported private key type: %T", priv)
}
