package siop

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did"
)

type testIdentity struct {
	did    string
	kid    string
	hexKey string
}

func newP256KeyIdentity(t *testing.T) testIdentity {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	mk, err := cryptography.EncodeMultikey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	return testIdentity{
		did:    "did:key:" + mk,
		kid:    "did:key:" + mk + "#" + mk,
		hexKey: hex.EncodeToString(priv.D.FillBytes(make([]byte, 32))),
	}
}

func newEd25519KeyIdentity(t *testing.T) testIdentity {
	t.Helper()

	id, err := did.GenerateEd25519Identity(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	pub, err := id.PublicIdentity()
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := pub.PublicKey.(ed25519.PublicKey); !ok {
		t.Fatalf("unexpected key type %T", pub.PublicKey)
	}

	return testIdentity{
		did:    string(pub.ID),
		kid:    string(pub.KID),
		hexKey: id.HexPrivateKey(),
	}
}

func newEthrIdentity(t *testing.T) testIdentity {
	t.Helper()

	id, err := did.GenerateSecp256k1Identity()
	if err != nil {
		t.Fatal(err)
	}

	pub, err := id.PublicIdentity()
	if err != nil {
		t.Fatal(err)
	}

	return testIdentity{
		did:    string(pub.ID),
		kid:    string(pub.KID),
		hexKey: id.HexPrivateKey(),
	}
}
