package siop

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/jws"
)

// VerifiablePresentationResponseOpts is a presentation submitted with a response
type VerifiablePresentationResponseOpts struct {
	Format       VerifiablePresentationTypeFormat
	Location     PresentationLocation
	Presentation json.RawMessage
}

// AuthenticationResponseOpts configures the id_token an OP returns. Nonce and
// State default to the values of the verified request.
type AuthenticationResponseOpts struct {
	SignatureType SignatureType
	Registration  ResponseRegistrationOpts
	ResponseMode  ResponseMode
	RedirectURI   string
	Nonce         string
	State         string
	DID           string
	VP            []VerifiablePresentationResponseOpts
	ExpiresIn     int
}

// VerifiablePresentationPayload is a presentation as carried in the id_token
type VerifiablePresentationPayload struct {
	Format       VerifiablePresentationTypeFormat `json:"format"`
	Presentation json.RawMessage                  `json:"presentation"`
}

// AuthenticationResponsePayload is the signed id_token
type AuthenticationResponsePayload struct {
	Iss                     string                          `json:"iss"`
	Sub                     string                          `json:"sub"`
	Aud                     string                          `json:"aud"`
	ExpiresAt               int64                           `json:"exp"`
	IssuedAt                int64                           `json:"iat"`
	Nonce                   string                          `json:"nonce"`
	State                   string                          `json:"state"`
	Registration            *DiscoveryMetadataPayload       `json:"registration,omitempty"`
	DID                     string                          `json:"did"`
	SubJWK                  map[string]interface{}          `json:"sub_jwk,omitempty"`
	VerifiablePresentations []VerifiablePresentationPayload `json:"verifiable_presentations,omitempty"`
	VPToken                 *VerifiablePresentationPayload  `json:"vp_token,omitempty"`
}

// AuthenticationResponseWithJWT is a signed response and where it must be sent
type AuthenticationResponseWithJWT struct {
	JWT             string
	Payload         *AuthenticationResponsePayload
	Nonce           string
	State           string
	RedirectURI     string
	ResponseMode    ResponseMode
	RegistrationURI string
}

// CreateAuthenticationResponse answers a verified request with a signed
// id_token. req may be nil when opts carries the redirect uri, nonce and state.
func CreateAuthenticationResponse(ctx context.Context, req *VerifiedAuthenticationRequestWithJWT, opts *AuthenticationResponseOpts) (*AuthenticationResponseWithJWT, error) {
	if opts == nil {
		return nil, errs.New(errs.BadParams, "response options required")
	}

	var rp AuthenticationRequestPayload
	if req != nil && req.Payload != nil {
		rp = *req.Payload
	}

	sig, err := normaliseSignature(opts.SignatureType)
	if err != nil {
		return nil, err
	}

	reg, regURI, err := createDiscoveryMetadata(opts.Registration)
	if err != nil {
		return nil, err
	}

	redirect := firstNonEmpty(opts.RedirectURI, rp.RedirectURI)
	if redirect == "" {
		return nil, errs.New(errs.BadParams, "redirect uri required")
	}

	nonce := firstNonEmpty(opts.Nonce, rp.Nonce)
	if nonce == "" {
		return nil, errs.New(errs.BadNonce, "no nonce to answer")
	}

	state := firstNonEmpty(opts.State, rp.State)

	did := sig.signerDID()
	if opts.DID != "" && opts.DID != did {
		return nil, errs.Newf(errs.BadParams, "did %q does not match signer %q", opts.DID, did)
	}

	mode := ResponseMode(firstNonEmpty(string(opts.ResponseMode), string(rp.ResponseMode)))
	if mode == "" {
		mode = ResponseModePost
	}

	subJWK, err := subjectJWK(sig)
	if err != nil {
		return nil, err
	}

	now := nowFunc()

	payload := &AuthenticationResponsePayload{
		Iss:          SelfIssuedIssuer,
		Sub:          did,
		Aud:          redirect,
		ExpiresAt:    now.Add(expiresIn(opts.ExpiresIn)).Unix(),
		IssuedAt:     now.Unix(),
		Nonce:        nonce,
		State:        state,
		Registration: reg,
		DID:          did,
		SubJWK:       subJWK,
	}

	if err := addPresentations(payload, opts.VP); err != nil {
		return nil, err
	}

	signer, err := newSigner(sig)
	if err != nil {
		return nil, err
	}

	jwt, err := jws.Sign(ctx, payload, signer)
	if err != nil {
		return nil, errs.Wrap(err, errs.SignatureError, "signing response")
	}

	logging.Entry().WithField("kid", signer.KeyID()).WithField("aud", redirect).Debug("signed authentication response")

	return &AuthenticationResponseWithJWT{
		JWT:             jwt,
		Payload:         payload,
		Nonce:           nonce,
		State:           state,
		RedirectURI:     redirect,
		ResponseMode:    mode,
		RegistrationURI: regURI,
	}, nil
}

func addPresentations(p *AuthenticationResponsePayload, vps []VerifiablePresentationResponseOpts) error {
	for _, vp := range vps {
		switch vp.Format {
		case PresentationFormatJWT, PresentationFormatLDP:
		default:
			return errs.Newf(errs.BadParams, "unsupported presentation format %q", vp.Format)
		}

		if len(vp.Presentation) == 0 {
			return errs.New(errs.BadParams, "empty presentation")
		}

		pl := VerifiablePresentationPayload{Format: vp.Format, Presentation: vp.Presentation}

		switch vp.Location {
		case PresentationLocationVPToken:
			if p.VPToken != nil {
				return errs.New(errs.BadParams, "only one vp_token presentation allowed")
			}
			p.VPToken = &pl
		case PresentationLocationIDToken, "":
			p.VerifiablePresentations = append(p.VerifiablePresentations, pl)
		default:
			return errs.Newf(errs.BadParams, "unknown presentation location %q", vp.Location)
		}
	}

	return nil
}

// subjectJWK is the signer public key as a JWK, when it is known locally
func subjectJWK(st SignatureType) (map[string]interface{}, error) {
	var pub crypto.PublicKey

	switch s := st.(type) {
	case InternalSignature:
		signer, err := newSigner(s)
		if err != nil {
			return nil, err
		}
		pub = signer.(*jws.KeySigner).Public()
	case ExternalSignature:
		if s.HexPublicKey == "" {
			return nil, nil
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(s.HexPublicKey, "0x"))
		if err != nil {
			return nil, errs.Wrap(err, errs.BadSignatureParams, "public key")
		}
		if len(raw) == ed25519.PublicKeySize {
			pub = ed25519.PublicKey(raw)
		} else if pub, err = cryptography.ParseSecp256k1PublicKey(raw); err != nil {
			return nil, errs.Wrap(err, errs.BadSignatureParams, "public key")
		}
	}

	if pub == nil {
		return nil, nil
	}

	jwk, err := cryptography.PublicJWK(pub)
	if err != nil {
		return nil, errs.Wrap(err, errs.BadSignatureParams, "public key")
	}

	return jwk, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

// EncodedResponse is how a response travels back to the RP. Redirect modes
// only set URL; post modes set URL, Body and ContentType.
type EncodedResponse struct {
	ResponseMode ResponseMode
	URL          string
	Body         string
	ContentType  string
}

// EncodeResponse renders the response for its response mode
func EncodeResponse(r *AuthenticationResponseWithJWT) (*EncodedResponse, error) {
	if r == nil || r.JWT == "" {
		return nil, errs.New(errs.BadParams, "signed response required")
	}

	q := &orderedParams{}
	q.add("id_token", r.JWT)
	if r.State != "" {
		q.add("state", r.State)
	}
	params := q.encode()

	enc := &EncodedResponse{ResponseMode: r.ResponseMode}

	switch r.ResponseMode {
	case ResponseModeFragment:
		enc.URL = strings.SplitN(r.RedirectURI, "#", 2)[0] + "#" + params
	case ResponseModeQuery:
		sep := "?"
		if strings.Contains(r.RedirectURI, "?") {
			sep = "&"
		}
		enc.URL = r.RedirectURI + sep + params
	case ResponseModePost, ResponseModeFormPost, "":
		enc.URL = r.RedirectURI
		enc.Body = params
		enc.ContentType = FormURLEncoded
	default:
		return nil, errs.Newf(errs.BadParams, "unsupported response mode %q", r.ResponseMode)
	}

	return enc, nil
}

// ParseResponseParams reads id_token and state from a redirect url or form body
func ParseResponseParams(s string) (idToken string, state string, err error) {
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[i+1:]
	} else if i := strings.Index(s, "?"); i >= 0 {
		s = s[i+1:]
	}

	q, err := url.ParseQuery(s)
	if err != nil {
		return "", "", errs.Wrap(err, errs.BadParams, "parsing response")
	}

	idToken = q.Get("id_token")
	if idToken == "" {
		return "", "", errs.New(errs.BadParams, "response has no id_token")
	}

	return idToken, q.Get("state"), nil
}

// VerifiedAuthenticationResponseWithJWT is a response whose signature and
// binding to the original request have been checked
type VerifiedAuthenticationResponseWithJWT struct {
	Payload     *AuthenticationResponsePayload
	Issuer      string
	Signer      Signer
	JWT         string
	DIDDocument *w3cdid.Document
}

// VerifyAuthenticationResponseJWT verifies an OP id_token. nonce, state and
// aud must equal the values in opts when those are set.
func VerifyAuthenticationResponseJWT(ctx context.Context, jwt string, opts *VerifyOpts) (*VerifiedAuthenticationResponseWithJWT, error) {
	res, err := verifyDIDJWT(ctx, jwt, opts)
	if err != nil {
		return nil, err
	}

	p := &AuthenticationResponsePayload{}
	if err := res.token.Claims(p); err != nil {
		return nil, errs.Wrap(err, errs.VerifyBadParams, "decoding response payload")
	}

	switch {
	case p.Iss != SelfIssuedIssuer:
		return nil, errs.Newf(errs.VerificationError, "iss %q is not self issued", p.Iss)
	case p.Nonce == "":
		return nil, errs.New(errs.VerificationError, "response has no nonce")
	case opts.Nonce != "" && opts.Nonce != p.Nonce:
		return nil, errs.New(errs.VerificationError, "nonce mismatch")
	case opts.State != "" && opts.State != p.State:
		return nil, errs.New(errs.VerificationError, "state mismatch")
	case opts.Audience != "" && opts.Audience != p.Aud:
		return nil, errs.Newf(errs.VerificationError, "aud %q is not %q", p.Aud, opts.Audience)
	case p.DID != "" && p.DID != res.issuer:
		return nil, errs.Newf(errs.VerificationError, "did %q was not signed by %q", p.DID, res.issuer)
	}

	return &VerifiedAuthenticationResponseWithJWT{
		Payload:     p,
		Issuer:      res.issuer,
		Signer:      res.signer,
		JWT:         jwt,
		DIDDocument: res.doc,
	}, nil
}
