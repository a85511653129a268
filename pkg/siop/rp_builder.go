package siop

import (
	"github.com/hashicorp/go-multierror"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/resolver"
	"github.com/tcfw/siop/pkg/errs"
)

// RPBuilder accumulates RP settings. Problems are reported together by Build.
type RPBuilder struct {
	resolvers resolverSet

	redirectURI            string
	requestBy              *PassByOpts
	registrationBy         *PassByOpts
	responseMode           ResponseMode
	scope                  Scope
	credentialFormats      []CredentialFormat
	subjectIdentifierTypes []SubjectIdentifierType
	signatureType          SignatureType
	claims                 *ClaimOpts
	expiresIn              int
	verification           Verification
}

func NewRPBuilder() *RPBuilder {
	return &RPBuilder{}
}

// AddDidMethod resolves method with its default resolver and advertises it
func (b *RPBuilder) AddDidMethod(method string, opts ...resolver.DefaultsOption) *RPBuilder {
	b.resolvers.addDidMethod(method, opts...)
	return b
}

func (b *RPBuilder) AddResolver(method string, r did.Resolver) *RPBuilder {
	b.resolvers.addResolver(method, r)
	return b
}

func (b *RPBuilder) Redirect(uri string) *RPBuilder {
	b.redirectURI = uri
	return b
}

// RequestBy sets how the request object travels. refURI is needed for REFERENCE.
func (b *RPBuilder) RequestBy(t PassBy, refURI ...string) *RPBuilder {
	b.requestBy = passBy(t, refURI)
	return b
}

func (b *RPBuilder) RegistrationBy(t PassBy, refURI ...string) *RPBuilder {
	b.registrationBy = passBy(t, refURI)
	return b
}

func (b *RPBuilder) Response(mode ResponseMode) *RPBuilder {
	b.responseMode = mode
	return b
}

func (b *RPBuilder) WithScope(scope Scope) *RPBuilder {
	b.scope = scope
	return b
}

func (b *RPBuilder) AddCredentialFormat(f ...CredentialFormat) *RPBuilder {
	b.credentialFormats = append(b.credentialFormats, f...)
	return b
}

func (b *RPBuilder) AddSubjectIdentifierType(t ...SubjectIdentifierType) *RPBuilder {
	b.subjectIdentifierTypes = append(b.subjectIdentifierTypes, t...)
	return b
}

func (b *RPBuilder) AddPresentationDefinition(pd PresentationDefinitionWithLocation) *RPBuilder {
	if b.claims == nil {
		b.claims = &ClaimOpts{}
	}
	b.claims.PresentationDefinitions = append(b.claims.PresentationDefinitions, pd)
	return b
}

func (b *RPBuilder) Signature(st SignatureType) *RPBuilder {
	b.signatureType = st
	return b
}

func (b *RPBuilder) InternalSignature(hexPrivateKey, did, kid string) *RPBuilder {
	return b.Signature(InternalSignature{HexPrivateKey: hexPrivateKey, DID: did, KID: kid})
}

func (b *RPBuilder) ExternalSignature(signatureURI, did, authZToken, kid string) *RPBuilder {
	return b.Signature(ExternalSignature{SignatureURI: signatureURI, DID: did, AuthZToken: authZToken, KID: kid})
}

// WithExpiresIn sets the request lifetime in seconds
func (b *RPBuilder) WithExpiresIn(seconds int) *RPBuilder {
	b.expiresIn = seconds
	return b
}

// WithVerification replaces the internal verification of responses
func (b *RPBuilder) WithVerification(v Verification) *RPBuilder {
	b.verification = v
	return b
}

// Build checks the settings and returns the RP. No keys are parsed and no
// network calls are made.
func (b *RPBuilder) Build() (*RP, error) {
	problems := b.resolvers.problems

	if b.redirectURI == "" {
		problems = multierror.Append(problems, errs.New(errs.BadParams, "redirect uri not set"))
	}
	if b.requestBy == nil {
		problems = multierror.Append(problems, errs.New(errs.RequestObjectTypeNotSet, "request by not set"))
	} else if err := checkPassBy(*b.requestBy, errs.RequestObjectTypeNotSet); err != nil {
		problems = multierror.Append(problems, err)
	}
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

	if err := buildError("rp", problems); err != nil {
		return nil, err
	}

	subjects := b.subjectIdentifierTypes
	if len(subjects) == 0 {
		subjects = []SubjectIdentifierType{SubjectIdentifierDID}
	}

	opts := &AuthenticationRequestOpts{
		RedirectURI:   b.redirectURI,
		RequestBy:     *b.requestBy,
		SignatureType: b.signatureType,
		ResponseMode:  b.responseMode,
		Scope:         b.scope,
		Claims:        b.claims,
		ExpiresIn:     b.expiresIn,
		Registration: RequestRegistrationOpts{
			RegistrationBy:              *b.registrationBy,
			DidMethodsSupported:         b.resolvers.siopDidMethods(),
			SubjectIdentifiersSupported: subjects,
			CredentialFormatsSupported:  b.credentialFormats,
		},
	}

	v := b.verification
	if v == nil {
		var err error
		if v, err = b.resolvers.verification(); err != nil {
			return nil, errs.Wrap(err, errs.BadParams, "building rp")
		}
	}

	return NewRP(opts, v)
}

func passBy(t PassBy, refURI []string) *PassByOpts {
	p := &PassByOpts{Type: t}
	if len(refURI) > 0 {
		p.ReferenceURI = refURI[0]
	}
	return p
}
