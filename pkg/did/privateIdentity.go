package did

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"strings"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

// PrivateIdentity is a DID the local process holds the signing key for.
type PrivateIdentity interface {
	PrivateKey() crypto.PrivateKey
	PublicIdentity() (*PublicIdentity, error)
	HexPrivateKey() string
}

// Ed25519Identity is a did:key identity over an ed25519 key
type Ed25519Identity struct {
	sk ed25519.PrivateKey
}

func NewEd25519Identity(sk []byte) *Ed25519Identity {
	return &Ed25519Identity{sk: ed25519.PrivateKey(sk)}
}

func GenerateEd25519Identity(rand io.Reader) (PrivateIdentity, error) {
	_, sk, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}

	return &Ed25519Identity{sk}, nil
}

func (e *Ed25519Identity) PublicIdentity() (*PublicIdentity, error) {
	pk := e.sk.Public().(ed25519.PublicKey)

	mk, err := cryptography.EncodeMultikey(pk)
	if err != nil {
		return nil, err
	}

	id := w3cdid.URL("did:key:" + mk)

	pub := &PublicIdentity{
		ID:        id,
		KID:       id.WithFragment(mk),
		Algorithm: cryptography.EdDSA,
		PublicKey: pk,
	}

	return pub, nil
}

func (e *Ed25519Identity) PrivateKey() crypto.PrivateKey {
	return e.sk
}

func (e *Ed25519Identity) HexPrivateKey() string {
	return hex.EncodeToString(e.sk)
}

// Secp256k1Identity is a did:ethr identity controlled by a secp256k1 key
type Secp256k1Identity struct {
	sk *ecdsa.PrivateKey
}

func NewSecp256k1Identity(sk []byte) (*Secp256k1Identity, error) {
	k, err := cryptography.Secp256k1PrivateKeyFromBytes(sk)
	if err != nil {
		return nil, err
	}

	return &Secp256k1Identity{k}, nil
}

func GenerateSecp256k1Identity() (PrivateIdentity, error) {
	k, err := cryptography.NewSecp256k1PrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generating identity")
	}

	return &Secp256k1Identity{k}, nil
}

func (s *Secp256k1Identity) PublicIdentity() (*PublicIdentity, error) {
	id := w3cdid.URL("did:ethr:" + strings.ToLower(cryptography.Secp256k1Address(&s.sk.PublicKey)))

	return &PublicIdentity{
		ID:        id,
		KID:       id.WithFragment("controller"),
		Algorithm: cryptography.ES256K,
		PublicKey: &s.sk.PublicKey,
	}, nil
}

func (s *Secp256k1Identity) PrivateKey() crypto.PrivateKey {
	return s.sk
}

func (s *Secp256k1Identity) HexPrivateKey() string {
	return hex.EncodeToString(ethCrypto.FromECDSA(s.sk))
}
