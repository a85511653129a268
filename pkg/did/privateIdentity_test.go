package did

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcfw/siop/pkg/cryptography"
)

func TestEd25519Identity(t *testing.T) {
	id, err := GenerateEd25519Identity(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	pub, err := id.PublicIdentity()
	if err != nil {
		t.Fatal(err)
	}

	assert.True(t, strings.HasPrefix(string(pub.ID), "did:key:z6Mk"))
	assert.Equal(t, pub.ID, pub.KID.DID())
	assert.Equal(t, pub.ID.Id(), pub.KID.Fragment())
	assert.Equal(t, cryptography.EdDSA, pub.Algorithm)

	_, alg, err := cryptography.ParsePrivateKeyHex(id.HexPrivateKey(), "")
	assert.NoError(t, err)
	assert.Equal(t, cryptography.EdDSA, alg)

	jwk, err := pub.JWK()
	assert.NoError(t, err)
	assert.Equal(t, "OKP", jwk["kty"])
}

func TestSecp256k1Identity(t *testing.T) {
	raw, _ := hex.DecodeString("f857544a9d1097e242ff0b287a7e6e90f19cf973efe2317f2a4678739664420f")

	id, err := NewSecp256k1Identity(raw)
	if err != nil {
		t.Fatal(err)
	}

	pub, err := id.PublicIdentity()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "did:ethr:0x4d3171baf3ec3ce370ec65e7d354741a970ba038", string(pub.ID))
	assert.Equal(t, "did:ethr:0x4d3171baf3ec3ce370ec65e7d354741a970ba038#controller", string(pub.KID))
	assert.Equal(t, "f857544a9d1097e242ff0b287a7e6e90f19cf973efe2317f2a4678739664420f", id.HexPrivateKey())
}
