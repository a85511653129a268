package cryptography

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/assert"
	"github.com/tcfw/siop/pkg/cryptography"
)

func TestEd25519PublicKeyEncodings(t *testing.T) {
	did := "did:example:1234"

	pk, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	mb, err := multibase.Encode(multibase.Base64, pk)
	if err != nil {
		t.Fatal(err)
	}

	mk, err := cryptography.EncodeMultikey(pk)
	if err != nil {
		t.Fatal(err)
	}

	jwk, err := cryptography.PublicJWK(pk)
	if err != nil {
		t.Fatal(err)
	}

	vms := map[string]VerificationMethod{
		"multibase": {ID: did + "#1", Type: Ed25519VerificationKey2018, Controller: did, PublicKeyMultibase: mb},
		"multikey":  {ID: did + "#2", Type: Multikey, Controller: did, PublicKeyMultibase: mk},
		"2020":      {ID: did + "#3", Type: Ed25519VerificationKey2020, Controller: did, PublicKeyMultibase: mk},
		"base58":    {ID: did + "#4", Type: Ed25519VerificationKey2018, Controller: did, PublicKeyBase58: base58.Encode(pk)},
		"jwk":       {ID: did + "#5", Type: JsonWebKey2020, Controller: did, PublicKeyJwk: jwk},
	}

	for name, vm := range vms {
		t.Run(name, func(t *testing.T) {
			pub, err := vm.PublicKey()
			assert.NoError(t, err)
			assert.Equal(t, pk, pub)
		})
	}
}

func TestSecp256k1PublicKeyHex(t *testing.T) {
	pk, err := cryptography.NewSecp256k1PrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	vm := VerificationMethod{
		ID:           "did:example:1234#controllerKey",
		Type:         EcdsaSecp256k1VerificationKey2019,
		PublicKeyHex: hex.EncodeToString(cryptography.MarshalSecp256k1PublicKey(&pk.PublicKey, true)),
	}

	pub, err := vm.PublicKey()
	if assert.NoError(t, err) {
		assert.True(t, pk.PublicKey.Equal(pub))
	}
}

func TestRecoveryMethodHasNoKey(t *testing.T) {
	vm := VerificationMethod{
		ID:                  "did:ethr:0xabc#controller",
		Type:                EcdsaSecp256k1RecoveryMethod2020,
		BlockchainAccountID: "eip155:1:0xabc",
	}

	_, err := vm.PublicKey()
	assert.ErrorIs(t, err, ErrNoPublicKeyMaterial)
	assert.Equal(t, "0xabc", vm.Address())

	vm.BlockchainAccountID = "0xdef@eip155:1"
	assert.Equal(t, "0xdef", vm.Address())

	vm.EthereumAddress = "0x123"
	assert.Equal(t, "0x123", vm.Address())
}

func TestInvalidEd25519Length(t *testing.T) {
	vm := VerificationMethod{Type: Ed25519VerificationKey2018, PublicKeyBase58: base58.Encode([]byte("short"))}
	_, err := vm.PublicKey()
	assert.ErrorIs(t, err, ErrInvalidPublicKeyLength)
}
