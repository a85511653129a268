package siop

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/jws"
)

// AuthenticationRequestOpts configures a request built by an RP
type AuthenticationRequestOpts struct {
	RedirectURI   string
	RequestBy     PassByOpts
	SignatureType SignatureType
	ResponseMode  ResponseMode
	Scope         Scope
	Claims        *ClaimOpts
	Registration  RequestRegistrationOpts
	Nonce         string
	State         string
	ExpiresIn     int
}

// AuthenticationRequestPayload is the signed request object
type AuthenticationRequestPayload struct {
	IssuedAt        int64                          `json:"iat"`
	ExpiresAt       int64                          `json:"exp"`
	ResponseType    ResponseType                   `json:"response_type"`
	Scope           Scope                          `json:"scope"`
	ClientID        string                         `json:"client_id"`
	RedirectURI     string                         `json:"redirect_uri"`
	Iss             string                         `json:"iss"`
	ResponseMode    ResponseMode                   `json:"response_mode"`
	ResponseContext ResponseContext                `json:"response_context"`
	Nonce           string                         `json:"nonce"`
	State           string                         `json:"state"`
	Registration    *RPRegistrationMetadataPayload `json:"registration,omitempty"`
	Claims          *ClaimPayload                  `json:"claims,omitempty"`
}

// AuthenticationRequestWithJWT is a signed request and the options it came from
type AuthenticationRequestWithJWT struct {
	JWT             string
	Payload         *AuthenticationRequestPayload
	Opts            *AuthenticationRequestOpts
	RegistrationURI string
}

// AuthenticationRequestURI adds the openid:// rendering of a signed request
type AuthenticationRequestURI struct {
	AuthenticationRequestWithJWT
	EncodedURI     string
	EncodingFormat string
}

// preparedRequest is the validated, assembled, unsigned request
type preparedRequest struct {
	opts            *AuthenticationRequestOpts
	sig             SignatureType
	payload         *AuthenticationRequestPayload
	registrationURI string
}

func prepareAuthenticationRequest(opts *AuthenticationRequestOpts, now time.Time) (*preparedRequest, error) {
	if opts == nil || opts.RedirectURI == "" {
		return nil, errs.New(errs.BadParams, "redirect uri required")
	}

	if err := checkPassBy(opts.RequestBy, errs.RequestObjectTypeNotSet); err != nil {
		return nil, err
	}

	sig, err := normaliseSignature(opts.SignatureType)
	if err != nil {
		return nil, err
	}

	reg, regURI, err := createRPRegistration(opts.Registration)
	if err != nil {
		return nil, err
	}

	claims, err := createClaims(opts.Claims)
	if err != nil {
		return nil, err
	}

	mode := opts.ResponseMode
	if mode == "" {
		mode = ResponseModePost
	}

	scope := opts.Scope
	if scope == "" {
		scope = ScopeOpenID
	}

	nonce := opts.Nonce
	if nonce == "" {
		nonce = NewNonce()
	}

	state := opts.State
	if state == "" {
		state = NewState()
	}

	did := sig.signerDID()

	return &preparedRequest{
		opts:            opts,
		sig:             sig,
		registrationURI: regURI,
		payload: &AuthenticationRequestPayload{
			IssuedAt:        now.Unix(),
			ExpiresAt:       now.Add(expiresIn(opts.ExpiresIn)).Unix(),
			ResponseType:    ResponseTypeIDToken,
			Scope:           scope,
			ClientID:        did,
			RedirectURI:     opts.RedirectURI,
			Iss:             did,
			ResponseMode:    mode,
			ResponseContext: ResponseContextRP,
			Nonce:           nonce,
			State:           state,
			Registration:    reg,
			Claims:          claims,
		},
	}, nil
}

// CreateAuthenticationRequestJWT validates opts, assembles the request payload
// and signs it.
func CreateAuthenticationRequestJWT(ctx context.Context, opts *AuthenticationRequestOpts) (*AuthenticationRequestWithJWT, error) {
	prep, err := prepareAuthenticationRequest(opts, nowFunc())
	if err != nil {
		return nil, err
	}

	signer, err := newSigner(prep.sig)
	if err != nil {
		return nil, err
	}

	jwt, err := jws.Sign(ctx, prep.payload, signer)
	if err != nil {
		return nil, errs.Wrap(err, errs.SignatureError, "signing request")
	}

	logging.Entry().WithField("kid", signer.KeyID()).WithField("alg", signer.Algorithm()).Debug("signed authentication request")

	return &AuthenticationRequestWithJWT{
		JWT:             jwt,
		Payload:         prep.payload,
		Opts:            opts,
		RegistrationURI: prep.registrationURI,
	}, nil
}

// CreateAuthenticationRequestURI builds and signs a request and renders it as
// an openid:// URI. Passing by reference puts RequestBy.ReferenceURI in
// request_uri; the caller is responsible for serving the returned JWT there.
func CreateAuthenticationRequestURI(ctx context.Context, opts *AuthenticationRequestOpts) (*AuthenticationRequestURI, error) {
	req, err := CreateAuthenticationRequestJWT(ctx, opts)
	if err != nil {
		return nil, err
	}

	uri, err := encodeRequestURI(req)
	if err != nil {
		return nil, err
	}

	return &AuthenticationRequestURI{
		AuthenticationRequestWithJWT: *req,
		EncodedURI:                   uri,
		EncodingFormat:               FormURLEncoded,
	}, nil
}

func encodeRequestURI(req *AuthenticationRequestWithJWT) (string, error) {
	p := req.Payload

	q := &orderedParams{}
	q.add("response_type", string(p.ResponseType))
	q.add("scope", string(p.Scope))
	q.add("client_id", p.ClientID)
	q.add("redirect_uri", p.RedirectURI)
	q.add("iss", p.Iss)
	q.add("response_mode", string(p.ResponseMode))
	q.add("response_context", string(p.ResponseContext))
	q.add("nonce", p.Nonce)
	q.add("state", p.State)

	if p.Registration != nil {
		reg, err := marshalCompact(p.Registration)
		if err != nil {
			return "", errs.Wrap(err, errs.BadParams, "encoding registration")
		}
		q.add("registration", reg)
	} else if req.RegistrationURI != "" {
		q.add("registration_uri", req.RegistrationURI)
	}

	if p.Claims != nil {
		claims, err := marshalCompact(p.Claims)
		if err != nil {
			return "", errs.Wrap(err, errs.BadParams, "encoding claims")
		}
		q.add("claims", claims)
	}

	if req.Opts.RequestBy.Type == PassByReference {
		q.add("request_uri", req.Opts.RequestBy.ReferenceURI)
	} else {
		q.add("request", req.JWT)
	}

	return URIScheme + "?" + q.encode(), nil
}

// DecodeAuthenticationRequestPayload reads the request claims of an unverified token
func DecodeAuthenticationRequestPayload(jwt string) (*AuthenticationRequestPayload, error) {
	tok, err := jws.Decode(jwt)
	if err != nil {
		return nil, errs.Wrap(err, errs.VerifyBadParams, "decoding request")
	}

	p := &AuthenticationRequestPayload{}
	if err := json.Unmarshal(tok.Payload, p); err != nil {
		return nil, errs.Wrap(err, errs.VerifyBadParams, "decoding request payload")
	}

	return p, nil
}

func hasScope(s Scope, want string) bool {
	for _, f := range strings.Fields(string(s)) {
		if f == want {
			return true
		}
	}
	return false
}

// VerifiedAuthenticationRequestWithJWT is a request whose signature and
// protocol claims have been checked
type VerifiedAuthenticationRequestWithJWT struct {
	Payload     *AuthenticationRequestPayload
	Issuer      string
	Signer      Signer
	JWT         string
	DIDDocument *w3cdid.Document
}

// VerifyAuthenticationRequestJWT verifies the signature of an RP request and
// checks that it carries a nonce, matching opts.Nonce when that is set.
func VerifyAuthenticationRequestJWT(ctx context.Context, jwt string, opts *VerifyOpts) (*VerifiedAuthenticationRequestWithJWT, error) {
	res, err := verifyDIDJWT(ctx, jwt, opts)
	if err != nil {
		return nil, err
	}

	p := &AuthenticationRequestPayload{}
	if err := res.token.Claims(p); err != nil {
		return nil, errs.Wrap(err, errs.VerifyBadParams, "decoding request payload")
	}

	if p.Nonce == "" {
		return nil, errs.New(errs.VerificationError, "request has no nonce")
	}
	if opts.Nonce != "" && opts.Nonce != p.Nonce {
		return nil, errs.New(errs.VerificationError, "nonce mismatch")
	}
	if opts.State != "" && opts.State != p.State {
		return nil, errs.New(errs.VerificationError, "state mismatch")
	}
	if p.Iss != "" && p.Iss != res.issuer {
		return nil, errs.Newf(errs.VerificationError, "iss %q was not signed by %q", p.Iss, res.issuer)
	}
	if !hasScope(p.Scope, string(ScopeOpenID)) {
		return nil, errs.Newf(errs.VerificationError, "scope %q lacks openid", p.Scope)
	}

	return &VerifiedAuthenticationRequestWithJWT{
		Payload:     p,
		Issuer:      res.issuer,
		Signer:      res.signer,
		JWT:         jwt,
		DIDDocument: res.doc,
	}, nil
}
