package resolver

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	vmcrypto "github.com/tcfw/siop/pkg/did/w3cdid/cryptography"
)

// KeyResolver derives did:key documents from the identifier alone.
type KeyResolver struct{}

func (KeyResolver) Resolve(_ context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	if id.DID().Method() != "key" {
		return nil, errors.Wrapf(ErrUnknownMethod, "not a did:key: %s", id)
	}

	mk := id.DID().Id()

	pub, codec, err := cryptography.DecodeMultikey(mk)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDID, err.Error())
	}

	did := string(id.DID())

	vm := vmcrypto.VerificationMethod{
		ID:         did + "#" + mk,
		Controller: did,
	}

	switch codec {
	case cryptography.CodecEd25519Pub:
		vm.Type = vmcrypto.Ed25519VerificationKey2018
		vm.PublicKeyBase58 = base58.Encode(pub.(ed25519.PublicKey))
	case cryptography.CodecSecp256k1Pub:
		vm.Type = vmcrypto.EcdsaSecp256k1VerificationKey2019
		vm.PublicKeyJwk, err = cryptography.PublicJWK(pub)
	default:
		vm.Type = vmcrypto.JsonWebKey2020
		vm.PublicKeyJwk, err = cryptography.PublicJWK(pub)
	}
	if err != nil {
		return nil, errors.Wrap(err, "building verification method")
	}

	ref := []w3cdid.VerificationRelationship{{Reference: vm.ID}}

	return &w3cdid.Document{
		Context:              w3cdid.Context{w3cdid.ContextV1},
		ID:                   did,
		VerificationMethod:   []vmcrypto.VerificationMethod{vm},
		Authentication:       ref,
		AssertionMethod:      ref,
		CapabilityInvocation: ref,
		CapabilityDelegation: ref,
	}, nil
}
