package siop

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	vmcrypto "github.com/tcfw/siop/pkg/did/w3cdid/cryptography"
	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/jws"
)

// verifiedJWT is the outcome shared by request and response verification
type verifiedJWT struct {
	token  *jws.Token
	issuer string
	signer Signer
	doc    *w3cdid.Document
}

// issuerDID picks the signer DID from the kid, then iss, then the did claim
func issuerDID(tok *jws.Token) (string, error) {
	if strings.HasPrefix(tok.Header.KeyID, "did:") {
		return string(w3cdid.URL(tok.Header.KeyID).DID()), nil
	}

	claims := struct {
		Iss string `json:"iss"`
		DID string `json:"did"`
	}{}
	if err := tok.Claims(&claims); err != nil {
		return "", errs.Wrap(err, errs.VerifyBadParams, "decoding claims")
	}

	if strings.HasPrefix(claims.Iss, "did:") {
		return claims.Iss, nil
	}
	if strings.HasPrefix(claims.DID, "did:") {
		return claims.DID, nil
	}

	return "", errs.New(errs.NoIssuerDID, "token names no issuer did")
}

func verifyDIDJWT(ctx context.Context, jwt string, opts *VerifyOpts) (*verifiedJWT, error) {
	if opts == nil {
		return nil, errs.New(errs.VerifyBadParams, "verify options required")
	}

	v, err := normaliseVerification(opts.Verification)
	if err != nil {
		return nil, err
	}

	tok, err := jws.Decode(jwt)
	if err != nil {
		return nil, errs.Wrap(err, errs.VerifyBadParams, "decoding jwt")
	}

	issuer, err := issuerDID(tok)
	if err != nil {
		return nil, err
	}

	if err := w3cdid.URL(issuer).Validate(); err != nil {
		return nil, errs.Wrap(err, errs.NoIssuerDID, issuer)
	}

	ro := v.resolveOpts()
	method := w3cdid.URL(issuer).Method()

	log := logging.Entry().WithField("issuer", issuer).WithField("mode", v.Mode())

	var res *verifiedJWT

	switch t := v.(type) {
	case InternalVerification:
		if !ro.allows(method) {
			return nil, errs.Newf(errs.VerificationError, "did method %q is not allowed", method)
		}

		res, err = verifyInternal(ctx, tok, issuer, ro)
	case ExternalVerification:
		res, err = verifyExternal(ctx, tok, issuer, t)
	}
	if err != nil {
		log.WithError(err).Debug("verifying jwt")
		return nil, err
	}

	if err := tok.CheckTimes(opts.now(), opts.skew()); err != nil {
		return nil, errs.Wrap(err, errs.InvalidSignature, "")
	}

	log.WithField("kid", res.signer.ID).Debug("verified jwt")

	return res, nil
}

func verifyInternal(ctx context.Context, tok *jws.Token, issuer string, ro ResolveOpts) (*verifiedJWT, error) {
	doc, err := ro.resolve(ctx, w3cdid.URL(issuer))
	if err != nil {
		return nil, err
	}

	vm, err := doc.Signed(tok.Header.KeyID, signatureValidator(tok))
	if err != nil {
		return nil, signedError(err, tok.Header.KeyID != "")
	}

	return &verifiedJWT{
		token:  tok,
		issuer: issuer,
		signer: signerOf(vm, issuer),
		doc:    doc,
	}, nil
}

func verifyExternal(ctx context.Context, tok *jws.Token, issuer string, v ExternalVerification) (*verifiedJWT, error) {
	res := &verifiedJWT{
		token:  tok,
		issuer: issuer,
		signer: Signer{ID: tok.Header.KeyID, Controller: issuer},
	}

	if v.ResolveOpts.configured() {
		doc, err := v.ResolveOpts.resolve(ctx, w3cdid.URL(issuer))
		if err != nil {
			return nil, err
		}

		vm, err := selectMethod(doc, tok.Header.KeyID)
		if err != nil {
			return nil, err
		}

		res.doc = doc
		res.signer = signerOf(vm, issuer)
	}

	rv := &jws.RemoteVerifier{URI: v.VerifyURI, AuthZToken: v.AuthZToken, Client: v.Client}
	if err := rv.Verify(ctx, tok.Raw); err != nil {
		if errors.Is(err, jws.ErrInvalidSignature) {
			return nil, errs.Wrap(err, errs.InvalidSignature, "")
		}
		return nil, errs.Wrap(err, errs.VerificationError, "external verification")
	}

	return res, nil
}

// selectMethod finds the method named by kid, or the first signing method
func selectMethod(doc *w3cdid.Document, kid string) (*vmcrypto.VerificationMethod, error) {
	if kid != "" {
		vm, ok := doc.VerificationMethodByID(kid)
		if !ok {
			return nil, errs.Newf(errs.NoVerificationKey, "%s not in document", kid)
		}
		return vm, nil
	}

	methods := doc.SigningMethods()
	if len(methods) == 0 {
		return nil, errs.New(errs.VerifyBadParams, "document has no verification methods")
	}

	return &methods[0], nil
}

// signatureValidator checks tok against a single verification method. Methods
// that only carry a blockchain account are checked by ES256K key recovery.
func signatureValidator(tok *jws.Token) w3cdid.SignatureValidator {
	return func(vm vmcrypto.VerificationMethod) (bool, error) {
		pub, err := vm.PublicKey()
		if err != nil {
			if !errors.Is(err, vmcrypto.ErrNoPublicKeyMaterial) || vm.Address() == "" {
				return false, err
			}

			err = tok.VerifyWithAddress(vm.Address())
		} else {
			if err := cryptography.CheckKey(tok.Header.Algorithm, pub); err != nil {
				return false, err
			}

			err = tok.VerifyWithKey(pub)
		}

		if errors.Is(err, jws.ErrInvalidSignature) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		return true, nil
	}
}

func signedError(err error, kidGiven bool) error {
	switch {
	case errors.Is(err, w3cdid.ErrNoVerificationMethod):
		return errs.Wrap(err, errs.VerifyBadParams, "")
	case errors.Is(err, w3cdid.ErrKeyNotFound):
		return errs.Wrap(err, errs.NoVerificationKey, "")
	case errors.Is(err, w3cdid.ErrNoApplicableMethod):
		if kidGiven {
			return errs.Wrap(err, errs.InvalidSignature, "key type does not match algorithm")
		}
		return errs.Wrap(err, errs.NoVerificationKey, "")
	case errors.Is(err, w3cdid.ErrNoValidSignatures):
		return errs.Wrap(err, errs.InvalidSignature, "")
	}

	return errs.Wrap(err, errs.VerificationError, "")
}

func signerOf(vm *vmcrypto.VerificationMethod, issuer string) Signer {
	controller := vm.Controller
	if controller == "" {
		controller = issuer
	}

	id := vm.ID
	if strings.HasPrefix(id, "#") {
		id = issuer + id
	}

	return Signer{ID: id, Type: string(vm.Type), Controller: controller}
}
