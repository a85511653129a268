package siop

import (
	"github.com/hashicorp/go-multierror"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/resolver"
	"github.com/tcfw/siop/pkg/errs"
)

// OPBuilder accumulates OP settings. Problems are reported together by Build.
type OPBuilder struct {
	resolvers resolverSet

	registrationBy    *PassByOpts
	responseMode      ResponseMode
	credentialFormats []CredentialFormat
	signatureType     SignatureType
	expiresIn         int
	verification      Verification
}

func NewOPBuilder() *OPBuilder {
	return &OPBuilder{}
}

// AddDidMethod resolves method with its default resolver and advertises it
func (b *OPBuilder) AddDidMethod(method string, opts ...resolver.DefaultsOption) *OPBuilder {
	b.resolvers.addDidMethod(method, opts...)
	return b
}

func (b *OPBuilder) AddResolver(method string, r did.Resolver) *OPBuilder {
	b.resolvers.addResolver(method, r)
	return b
}

func (b *OPBuilder) AddCredentialFormat(f ...CredentialFormat) *OPBuilder {
	b.credentialFormats = append(b.credentialFormats, f...)
	return b
}

func (b *OPBuilder) Response(mode ResponseMode) *OPBuilder {
	b.responseMode = mode
	return b
}

func (b *OPBuilder) RegistrationBy(t PassBy, refURI ...string) *OPBuilder {
	b.registrationBy = passBy(t, refURI)
	return b
}

func (b *OPBuilder) Signature(st SignatureType) *OPBuilder {
	b.signatureType = st
	return b
}

func (b *OPBuilder) InternalSignature(hexPrivateKey, did, kid string) *OPBuilder {
	return b.Signature(InternalSignature{HexPrivateKey: hexPrivateKey, DID: did, KID: kid})
}

func (b *OPBuilder) ExternalSignature(signatureURI, did, authZToken, kid string) *OPBuilder {
	return b.Signature(ExternalSignature{SignatureURI: signatureURI, DID: did, AuthZToken: authZToken, KID: kid})
}

// WithExpiresIn sets the response lifetime in seconds
func (b *OPBuilder) WithExpiresIn(seconds int) *OPBuilder {
	b.expiresIn = seconds
	return b
}

// WithVerification replaces the internal verification of requests
func (b *OPBuilder) WithVerification(v Verification) *OPBuilder {
	b.verification = v
	return b
}

// Build checks the settings and returns the OP
func (b *OPBuilder) Build() (*OP, error) {
	problems := b.resolvers.problems

	if b.registrationBy == nil {
		problems = multierror.Append(problems, errs.New(errs.RegistrationObjectTypeNotSet, "registration by not set"))
	} else if err := checkPassBy(*b.registrationBy, errs.RegistrationObjectTypeNotSet); err != nil {
		problems = multierror.Append(problems, err)
	}
	if b.signatureType == nil {
		problems = multierror.Append(problems, errs.New(errs.BadSignatureParams, "signature not set"))
	} else if _, err := normaliseSignature(b.signatureType); err != nil {
		problems = multierror.Append(problems, err)
	}

	if err := buildError("op", problems); err != nil {
		return nil, err
	}

	v := b.verification
	if v == nil {
		var err error
		if v, err = b.resolvers.verification(); err != nil {
			return nil, errs.Wrap(err, errs.BadParams, "building op")
		}
	}

	resp := &AuthenticationResponseOpts{
		SignatureType: b.signatureType,
		ResponseMode:  b.responseMode,
		ExpiresIn:     b.expiresIn,
		Registration: ResponseRegistrationOpts{
			RegistrationBy:             *b.registrationBy,
			DidMethodsSupported:        b.resolvers.siopDidMethods(),
			CredentialFormatsSupported: b.credentialFormats,
		},
	}

	return FromOpts(resp, &VerifyOpts{Verification: v})
}
