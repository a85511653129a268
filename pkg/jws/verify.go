package jws

import (
	"crypto"
	"crypto/ecdsa"
	"strings"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
)

// VerifyWithKey checks the token signature with pub. The header algorithm must
// match the key type.
func (t *Token) VerifyWithKey(pub crypto.PublicKey) error {
	if err := cryptography.CheckKey(t.Header.Algorithm, pub); err != nil {
		return err
	}

	if t.Header.Algorithm == cryptography.ES256K {
		ok, err := cryptography.VerifyES256K(pub.(*ecdsa.PublicKey), t.signingInput, t.Signature)
		if err != nil {
			return errors.Wrap(ErrInvalidSignature, err.Error())
		}
		if !ok {
			return ErrInvalidSignature
		}
		return nil
	}

	if _, err := t.jws.Verify(pub); err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}

	return nil
}

// VerifyWithAddress checks an ES256K signature by recovering the signing
// address and comparing it with address.
func (t *Token) VerifyWithAddress(address string) error {
	if t.Header.Algorithm != cryptography.ES256K {
		return errors.Wrapf(cryptography.ErrAlgorithmKeyMismatch, "%s cannot be verified by address", t.Header.Algorithm)
	}

	addrs, err := cryptography.RecoverES256KAddresses(t.signingInput, t.Signature)
	if err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}

	for _, a := range addrs {
		if strings.EqualFold(a, address) {
			return nil
		}
	}

	return ErrInvalidSignature
}
