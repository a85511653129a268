package cryptography

import (
	"crypto"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"math/big"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	jose "gopkg.in/square/go-jose.v2"
)

const crvSecp256k1 = "secp256k1"

// PublicJWK renders pub as a JSON Web Key object.
func PublicJWK(pub crypto.PublicKey) (map[string]interface{}, error) {
	var b []byte

	if ec, ok := pub.(*ecdsa.PublicKey); ok && IsSecp256k1(ec) {
		b, _ = json.Marshal(map[string]string{
			"kty": "EC",
			"crv": crvSecp256k1,
			"x":   base64.RawURLEncoding.EncodeToString(padded(ec.X, 32)),
			"y":   base64.RawURLEncoding.EncodeToString(padded(ec.Y, 32)),
		})
	} else {
		jwk := jose.JSONWebKey{Key: pub}
		if !jwk.Valid() {
			return nil, errors.Errorf("unsupported jwk key type: %T", pub)
		}

		var err error
		b, err = jwk.MarshalJSON()
		if err != nil {
			return nil, errors.Wrap(err, "marshalling jwk")
		}
	}

	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshalling jwk")
	}

	return m, nil
}

// ParseJWK extracts the public key held in a JSON Web Key object.
func ParseJWK(jwk map[string]interface{}) (crypto.PublicKey, error) {
	if crv, _ := jwk["crv"].(string); crv == crvSecp256k1 {
		x, err := jwkCoordinate(jwk, "x")
		if err != nil {
			return nil, err
		}
		y, err := jwkCoordinate(jwk, "y")
		if err != nil {
			return nil, err
		}

		pub := &ecdsa.PublicKey{Curve: ethCrypto.S256(), X: x, Y: y}
		if !pub.Curve.IsOnCurve(x, y) {
			return nil, errors.New("jwk point is not on secp256k1")
		}
		return pub, nil
	}

	b, err := json.Marshal(jwk)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling jwk")
	}

	k := jose.JSONWebKey{}
	if err := k.UnmarshalJSON(b); err != nil {
		return nil, errors.Wrap(err, "parsing jwk")
	}

	if !k.IsPublic() {
		return k.Public().Key, nil
	}

	return k.Key, nil
}

func jwkCoordinate(jwk map[string]interface{}, name string) (*big.Int, error) {
	s, _ := jwk[name].(string)
	if s == "" {
		return nil, errors.Errorf("jwk missing %q", name)
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding jwk %q", name)
	}

	return new(big.Int).SetBytes(b), nil
}

func padded(i *big.Int, size int) []byte {
	b := i.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
