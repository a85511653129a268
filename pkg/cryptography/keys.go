package cryptography

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// ParsePrivateKeyHex decodes a hex encoded private key.
//
// 32 byte keys are secp256k1 scalars unless alg says otherwise (an ed25519
// seed for EdDSA, a P-256 scalar for ES256). 64 byte keys are ed25519 private
// keys. Anything else is tried as PKCS#8, PKCS#1 or SEC1 DER. When alg is
// empty it is derived from the key.
func ParsePrivateKeyHex(hexKey string, alg Algorithm) (crypto.PrivateKey, Algorithm, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, "", errors.Wrap(ErrInvalidPrivateKey, err.Error())
	}

	var key crypto.PrivateKey

	switch {
	case len(raw) == ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	case len(raw) == 32 && alg == EdDSA:
		key = ed25519.NewKeyFromSeed(raw)
	case len(raw) == 32 && alg == ES256:
		key = p256FromScalar(raw)
	case len(raw) == 32:
		key, err = Secp256k1PrivateKeyFromBytes(raw)
		if err != nil {
			return nil, "", err
		}
	default:
		key, err = parseDER(raw)
		if err != nil {
			return nil, "", err
		}
	}

	keyAlg, err := AlgorithmForKey(key)
	if err != nil {
		return nil, "", err
	}

	if alg != "" && alg != keyAlg {
		return nil, "", errors.Wrapf(ErrAlgorithmKeyMismatch, "%s key used with %s", keyAlg, alg)
	}

	return key, keyAlg, nil
}

func p256FromScalar(d []byte) *ecdsa.PrivateKey {
	c := elliptic.P256()
	priv := &ecdsa.PrivateKey{D: new(big.Int).SetBytes(d)}
	priv.PublicKey.Curve = c
	priv.PublicKey.X, priv.PublicKey.Y = c.ScalarBaseMult(d)
	return priv
}

func parseDER(raw []byte) (crypto.PrivateKey, error) {
	if k, err := x509.ParsePKCS8PrivateKey(raw); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(raw); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(raw); err == nil {
		return k, nil
	}

	return nil, errors.Wrapf(ErrInvalidPrivateKey, "unrecognised key encoding (%d bytes)", len(raw))
}
