package siop

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/jws"
)

// SignatureType is either an InternalSignature or an ExternalSignature
type SignatureType interface {
	signerDID() string
	keyID() string
}

// InternalSignature signs with a private key held in process
type InternalSignature struct {
	HexPrivateKey string
	DID           string
	KID           string
	Alg           cryptography.Algorithm
}

// ExternalSignature delegates signing to a remote HTTP signer
type ExternalSignature struct {
	SignatureURI string
	DID          string
	AuthZToken   string
	HexPublicKey string
	KID          string
	Alg          cryptography.Algorithm
	Client       *http.Client
}

func (s InternalSignature) signerDID() string { return s.DID }
func (s InternalSignature) keyID() string     { return s.KID }

func (s ExternalSignature) signerDID() string { return s.DID }
func (s ExternalSignature) keyID() string     { return s.KID }

// normaliseSignature accepts both value and pointer forms and checks the
// invariants shared by the two modes.
func normaliseSignature(st SignatureType) (SignatureType, error) {
	switch s := st.(type) {
	case *InternalSignature:
		if s == nil {
			break
		}
		return normaliseSignature(*s)
	case *ExternalSignature:
		if s == nil {
			break
		}
		return normaliseSignature(*s)
	case InternalSignature:
		if s.HexPrivateKey == "" {
			return nil, errs.New(errs.BadSignatureParams, "internal signature requires a private key")
		}
		if err := checkSignerIdentity(s.DID, s.KID); err != nil {
			return nil, err
		}
		return s, nil
	case ExternalSignature:
		if s.SignatureURI == "" {
			return nil, errs.New(errs.BadSignatureParams, "external signature requires a signature uri")
		}
		if err := checkSignerIdentity(s.DID, s.KID); err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, errs.New(errs.BadSignatureParams, "signature type must be internal or external")
}

func checkSignerIdentity(did, kid string) error {
	if did == "" {
		return errs.New(errs.BadSignatureParams, "signer did required")
	}
	if err := w3cdid.URL(did).Validate(); err != nil {
		return errs.Wrap(err, errs.BadSignatureParams, "signer did")
	}
	if w3cdid.URL(did).DID() != w3cdid.URL(did) {
		return errs.Newf(errs.BadSignatureParams, "signer did %q must not carry a path, query or fragment", did)
	}
	if kid != "" && !strings.HasPrefix(kid, did+"#") {
		return errs.Newf(errs.BadSignatureParams, "kid %q is not a fragment of %q", kid, did)
	}
	return nil
}

// newSigner turns a checked signature type into a JWS signer. The algorithm
// is taken from the options, then the DID method, then the key material.
func newSigner(st SignatureType) (jws.Signer, error) {
	switch s := st.(type) {
	case InternalSignature:
		alg := s.Alg
		if alg == "" {
			alg = algorithmForDID(s.DID)
		}

		key, keyAlg, err := cryptography.ParsePrivateKeyHex(s.HexPrivateKey, alg)
		if err != nil && s.Alg == "" && alg != "" {
			// the DID method guess does not fit the key, fall back to the key itself
			key, keyAlg, err = cryptography.ParsePrivateKeyHex(s.HexPrivateKey, "")
		}
		if err != nil {
			return nil, errs.Wrap(err, errs.BadSignatureParams, "private key")
		}

		signer, err := jws.NewKeySigner(key, keyAlg, s.KID)
		if err != nil {
			return nil, errs.Wrap(err, errs.BadSignatureParams, "private key")
		}
		return signer, nil

	case ExternalSignature:
		alg := s.Alg
		if alg == "" {
			alg = algorithmForDID(s.DID)
		}
		if alg == "" && s.HexPublicKey != "" {
			alg = algorithmForPublicKeyHex(s.HexPublicKey)
		}
		if alg == "" {
			alg = cryptography.ES256K
		}

		return &jws.RemoteSigner{
			URI:        s.SignatureURI,
			AuthZToken: s.AuthZToken,
			Issuer:     s.DID,
			KID:        s.KID,
			Alg:        alg,
			Client:     s.Client,
		}, nil
	}

	return nil, errs.New(errs.BadSignatureParams, "signature type must be internal or external")
}

func algorithmForDID(did string) cryptography.Algorithm {
	u := w3cdid.URL(did)

	switch u.Method() {
	case "ethr":
		return cryptography.ES256K
	case "key":
		_, codec, err := cryptography.DecodeMultikey(u.DID().Id())
		if err != nil {
			return ""
		}
		alg, _ := cryptography.AlgorithmForCodec(codec)
		return alg
	}

	return ""
}

func algorithmForPublicKeyHex(h string) cryptography.Algorithm {
	raw, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
	if err != nil {
		return ""
	}

	switch len(raw) {
	case 32:
		return cryptography.EdDSA
	case 33, 65:
		return cryptography.ES256K
	}

	return ""
}
