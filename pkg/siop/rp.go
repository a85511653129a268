package siop

import (
	"context"

	"github.com/tcfw/siop/pkg/errs"
)

// RP is a relying party able to issue requests and verify the responses
type RP struct {
	requestOpts AuthenticationRequestOpts
	verifyOpts  VerifyOpts
}

// RequestParams carries per request values. Empty values are generated.
// ReferenceURI replaces the configured request_uri for a single request.
type RequestParams struct {
	Nonce        string
	State        string
	ReferenceURI string
}

// FromRequestOpts builds an RP from request options. Responses are verified
// in process, resolving the DID methods listed in the registration.
func FromRequestOpts(opts *AuthenticationRequestOpts) (*RP, error) {
	return NewRP(opts, nil)
}

// NewRP builds an RP. A nil verification falls back to internal verification
// of the registered DID methods.
func NewRP(opts *AuthenticationRequestOpts, verification Verification) (*RP, error) {
	if _, err := prepareAuthenticationRequest(opts, nowFunc()); err != nil {
		return nil, err
	}

	if verification == nil {
		verification = InternalVerification{ResolveOpts: ResolveOpts{DidMethods: opts.Registration.DidMethodsSupported}}
	}

	v, err := normaliseVerification(verification)
	if err != nil {
		return nil, err
	}

	return &RP{
		requestOpts: *opts,
		verifyOpts:  VerifyOpts{Verification: v},
	}, nil
}

// CreateAuthenticationRequest signs a new request and renders its URI
func (rp *RP) CreateAuthenticationRequest(ctx context.Context, params RequestParams) (*AuthenticationRequestURI, error) {
	opts := rp.requestOpts
	opts.Nonce = params.Nonce
	opts.State = params.State

	if params.ReferenceURI != "" {
		if opts.RequestBy.Type != PassByReference {
			return nil, errs.New(errs.BadParams, "request is not passed by reference")
		}
		opts.RequestBy.ReferenceURI = params.ReferenceURI
	}

	return CreateAuthenticationRequestURI(ctx, &opts)
}

// ResponseParams are the request values a response must echo
type ResponseParams struct {
	Nonce    string
	State    string
	Audience string
}

// VerifyAuthenticationResponseJWT checks an id_token returned by an OP
func (rp *RP) VerifyAuthenticationResponseJWT(ctx context.Context, jwt string, params ResponseParams) (*VerifiedAuthenticationResponseWithJWT, error) {
	if jwt == "" {
		return nil, errs.New(errs.VerifyBadParams, "id_token required")
	}

	opts := rp.verifyOpts
	opts.Nonce = params.Nonce
	opts.State = params.State
	opts.Audience = params.Audience

	return VerifyAuthenticationResponseJWT(ctx, jwt, &opts)
}

// RequestOpts returns a copy of the options requests are built from
func (rp *RP) RequestOpts() AuthenticationRequestOpts {
	return rp.requestOpts
}
