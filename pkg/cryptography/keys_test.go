package cryptography

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHexKey = "f857544a9d1097e242ff0b287a7e6e90f19cf973efe2317f2a4678739664420f"

func TestParsePrivateKeyHexSecp256k1(t *testing.T) {
	key, alg, err := ParsePrivateKeyHex(testHexKey, "")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, ES256K, alg)

	ec, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		t.Fatalf("unexpected key type %T", key)
	}
	assert.True(t, IsSecp256k1(&ec.PublicKey))
	assert.True(t, strings.EqualFold("0x4d3171BaF3eC3CE370Ec65E7D354741a970ba038", Secp256k1Address(&ec.PublicKey)))
}

func TestParsePrivateKeyHexEd25519(t *testing.T) {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	key, alg, err := ParsePrivateKeyHex(hex.EncodeToString(sk), "")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, EdDSA, alg)
	assert.Equal(t, sk, key)

	key, alg, err = ParsePrivateKeyHex(hex.EncodeToString(sk.Seed()), EdDSA)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, EdDSA, alg)
	assert.Equal(t, sk, key)
}

func TestParsePrivateKeyHexP256Scalar(t *testing.T) {
	pk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	d := make([]byte, 32)
	pk.D.FillBytes(d)

	key, alg, err := ParsePrivateKeyHex(hex.EncodeToString(d), ES256)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ES256, alg)
	assert.True(t, pk.PublicKey.Equal(&key.(*ecdsa.PrivateKey).PublicKey))
}

func TestParsePrivateKeyHexDER(t *testing.T) {
	rk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(rk)
	if err != nil {
		t.Fatal(err)
	}

	_, alg, err := ParsePrivateKeyHex(hex.EncodeToString(der), "")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, RS256, alg)
}

func TestParsePrivateKeyHexErrors(t *testing.T) {
	_, _, err := ParsePrivateKeyHex("myprivatekey", "")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, _, err = ParsePrivateKeyHex("abcd", "")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, _, err = ParsePrivateKeyHex(testHexKey, RS256)
	assert.ErrorIs(t, err, ErrAlgorithmKeyMismatch)
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("ES256K")
	assert.NoError(t, err)
	assert.Equal(t, ES256K, alg)

	_, err = ParseAlgorithm("HS256")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
