package cryptography

import (
	"crypto"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
	pkgerrors "github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
)

type VerificationMethodType string

var (
	ErrInvalidPublicKey         = errors.New("invalid public key")
	ErrInvalidPublicKeyLength   = errors.New("invalid public key length")
	ErrInvalidPublicKeyType     = errors.New("invalid public key type")
	ErrUnsupportedPublicKeyType = errors.New("unsupported public key type")
	ErrNoPublicKeyMaterial      = errors.New("verification method has no public key material")
)

const (
	EcdsaSecp256k1RecoveryMethod2020  VerificationMethodType = "EcdsaSecp256k1RecoveryMethod2020"
	EcdsaSecp256k1VerificationKey2019 VerificationMethodType = "EcdsaSecp256k1VerificationKey2019"
	EcdsaSecp256r1VerificationKey2019 VerificationMethodType = "EcdsaSecp256r1VerificationKey2019"
	Ed25519VerificationKey2018        VerificationMethodType = "Ed25519VerificationKey2018"
	Ed25519VerificationKey2020        VerificationMethodType = "Ed25519VerificationKey2020"
	JsonWebKey2020                    VerificationMethodType = "JsonWebKey2020"
	Multikey                          VerificationMethodType = "Multikey"
	RsaVerificationKey2018            VerificationMethodType = "RsaVerificationKey2018"
	X25519KeyAgreementKey2019         VerificationMethodType = "X25519KeyAgreementKey2019"
)

type VerificationMethod struct {
	ID                  string                 `json:"id"`
	Type                VerificationMethodType `json:"type"`
	Controller          string                 `json:"controller"`
	PublicKeyJwk        map[string]interface{} `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase  string                 `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58     string                 `json:"publicKeyBase58,omitempty"`
	PublicKeyHex        string                 `json:"publicKeyHex,omitempty"`
	BlockchainAccountID string                 `json:"blockchainAccountId,omitempty"`
	EthereumAddress     string                 `json:"ethereumAddress,omitempty"`
}

// PublicKey decodes whichever public key encoding the method carries.
// Recovery methods that only name an account return ErrNoPublicKeyMaterial.
func (vm VerificationMethod) PublicKey() (crypto.PublicKey, error) {
	switch {
	case vm.PublicKeyJwk != nil:
		return cryptography.ParseJWK(vm.PublicKeyJwk)
	case vm.PublicKeyMultibase != "":
		if vm.Type == Multikey || vm.Type == Ed25519VerificationKey2020 {
			pub, _, err := cryptography.DecodeMultikey(vm.PublicKeyMultibase)
			return pub, err
		}
		raw, err := cryptography.DecodeMultibase(vm.PublicKeyMultibase)
		if err != nil {
			return nil, err
		}
		return vm.rawPublicKey(raw)
	case vm.PublicKeyBase58 != "":
		raw, err := base58.Decode(vm.PublicKeyBase58)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "decoding base58 key")
		}
		return vm.rawPublicKey(raw)
	case vm.PublicKeyHex != "":
		raw, err := hex.DecodeString(strings.TrimPrefix(vm.PublicKeyHex, "0x"))
		if err != nil {
			return nil, pkgerrors.Wrap(err, "decoding hex key")
		}
		return vm.rawPublicKey(raw)
	}

	return nil, ErrNoPublicKeyMaterial
}

func (vm VerificationMethod) rawPublicKey(raw []byte) (crypto.PublicKey, error) {
	switch vm.Type {
	case Ed25519VerificationKey2018, Ed25519VerificationKey2020:
		if len(raw) != ed25519.PublicKeySize {
			return nil, ErrInvalidPublicKeyLength
		}
		return ed25519.PublicKey(raw), nil
	case EcdsaSecp256k1VerificationKey2019, EcdsaSecp256k1RecoveryMethod2020:
		return cryptography.ParseSecp256k1PublicKey(raw)
	}

	return nil, pkgerrors.Wrapf(ErrUnsupportedPublicKeyType, "%s", vm.Type)
}

// Address returns the blockchain account the method is bound to, if any.
// Both CAIP-10 (eip155:1:0xabc) and the legacy 0xabc@eip155:1 forms are read.
func (vm VerificationMethod) Address() string {
	if vm.EthereumAddress != "" {
		return vm.EthereumAddress
	}

	acc := vm.BlockchainAccountID
	if acc == "" {
		return ""
	}

	if i := strings.Index(acc, "@"); i >= 0 {
		return acc[:i]
	}

	if i := strings.LastIndex(acc, ":"); i >= 0 {
		return acc[i+1:]
	}

	return acc
}
