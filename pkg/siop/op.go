package siop

import (
	"context"

	"github.com/tcfw/siop/pkg/errs"
)

// OP is a self-issued provider verifying requests and answering them
type OP struct {
	responseOpts AuthenticationResponseOpts
	verifyOpts   VerifyOpts
	fetcher      RequestObjectFetcher
}

// FromOpts builds an OP from response and request verification options
func FromOpts(responseOpts *AuthenticationResponseOpts, verifyOpts *VerifyOpts) (*OP, error) {
	if responseOpts == nil || verifyOpts == nil {
		return nil, errs.New(errs.BadParams, "response and verify options required")
	}

	if _, err := normaliseSignature(responseOpts.SignatureType); err != nil {
		return nil, err
	}

	if err := checkPassBy(responseOpts.Registration.RegistrationBy, errs.RegistrationObjectTypeNotSet); err != nil {
		return nil, err
	}

	v, err := normaliseVerification(verifyOpts.Verification)
	if err != nil {
		return nil, err
	}

	vo := *verifyOpts
	vo.Verification = v

	return &OP{responseOpts: *responseOpts, verifyOpts: vo}, nil
}

// WithFetcher sets how request_uri references are dereferenced
func (op *OP) WithFetcher(f RequestObjectFetcher) *OP {
	op.fetcher = f
	return op
}

// VerifyAuthenticationRequest verifies a request object. A non-empty nonce
// overrides the nonce configured in the verify options.
func (op *OP) VerifyAuthenticationRequest(ctx context.Context, jwt string, nonce string) (*VerifiedAuthenticationRequestWithJWT, error) {
	if jwt == "" {
		return nil, errs.New(errs.VerifyBadParams, "request jwt required")
	}

	opts := op.verifyOpts
	if nonce != "" {
		opts.Nonce = nonce
	}

	return VerifyAuthenticationRequestJWT(ctx, jwt, &opts)
}

// VerifyAuthenticationRequestURI parses an openid:// URI, fetching the request
// object when it is passed by reference, and verifies it. The nonce and state
// of the URI must match the signed request.
func (op *OP) VerifyAuthenticationRequestURI(ctx context.Context, uri string) (*VerifiedAuthenticationRequestWithJWT, error) {
	params, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	jwt, err := params.RequestObject(ctx, op.fetcher)
	if err != nil {
		return nil, err
	}

	opts := op.verifyOpts
	if params.Nonce != "" {
		opts.Nonce = params.Nonce
	}
	if params.State != "" {
		opts.State = params.State
	}

	return VerifyAuthenticationRequestJWT(ctx, jwt, &opts)
}

// CreateAuthenticationResponse answers a verified request
func (op *OP) CreateAuthenticationResponse(ctx context.Context, req *VerifiedAuthenticationRequestWithJWT) (*AuthenticationResponseWithJWT, error) {
	if req == nil {
		return nil, errs.New(errs.BadParams, "verified request required")
	}

	opts := op.responseOpts

	return CreateAuthenticationResponse(ctx, req, &opts)
}

// ResponseOpts returns a copy of the options responses are built from
func (op *OP) ResponseOpts() AuthenticationResponseOpts {
	return op.responseOpts
}
