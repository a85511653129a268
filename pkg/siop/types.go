// Package siop builds and verifies Self-Issued OpenID Provider authentication
// requests and responses signed by DIDs.
package siop

import (
	"time"

	"github.com/tcfw/siop/pkg/cryptography"
)

const (
	// SelfIssuedIssuer is the iss of every SIOP response
	SelfIssuedIssuer = "https://self-issued.me"

	// URIScheme prefixes encoded authentication request URIs
	URIScheme = "openid://"

	// FormURLEncoded is the encoding format of request URIs
	FormURLEncoded = "application/x-www-form-urlencoded"

	// DefaultExpiresIn applies when no expiry is configured
	DefaultExpiresIn = 600 * time.Second
)

type ResponseMode string

const (
	ResponseModeFragment ResponseMode = "fragment"
	ResponseModeFormPost ResponseMode = "form_post"
	ResponseModePost     ResponseMode = "post"
	ResponseModeQuery    ResponseMode = "query"
)

type PassBy string

const (
	PassByNone      PassBy = "NONE"
	PassByReference PassBy = "REFERENCE"
	PassByValue     PassBy = "VALUE"
)

// PassByOpts chooses whether an object travels inline or as a reference URI
type PassByOpts struct {
	Type         PassBy `json:"type"`
	ReferenceURI string `json:"referenceUri,omitempty"`
}

type CredentialFormat string

const (
	CredentialFormatJSONLD CredentialFormat = "w3cvc-jsonld"
	CredentialFormatJWT    CredentialFormat = "jwt"
)

type PresentationLocation string

const (
	PresentationLocationVPToken PresentationLocation = "vp_token"
	PresentationLocationIDToken PresentationLocation = "id_token"
)

type VerifiablePresentationTypeFormat string

const (
	PresentationFormatJWT VerifiablePresentationTypeFormat = "jwt_vp"
	PresentationFormatLDP VerifiablePresentationTypeFormat = "ldp_vp"
)

type SubjectIdentifierType string

const (
	SubjectIdentifierJKT SubjectIdentifierType = "jkt"
	SubjectIdentifierDID SubjectIdentifierType = "did"
)

type SubjectType string

const (
	SubjectTypePublic   SubjectType = "public"
	SubjectTypePairwise SubjectType = "pairwise"
)

type Scope string

const (
	ScopeOpenID         Scope = "openid"
	ScopeOpenIDDidAuthn Scope = "openid did_authn"
)

type ResponseType string

const ResponseTypeIDToken ResponseType = "id_token"

type ResponseContext string

const (
	ResponseContextRP ResponseContext = "rp"
	ResponseContextOP ResponseContext = "op"
)

// SigningAlgo is a request object signing algorithm, which may be "none"
type SigningAlgo string

const (
	SigningAlgoEdDSA  SigningAlgo = SigningAlgo(cryptography.EdDSA)
	SigningAlgoRS256  SigningAlgo = SigningAlgo(cryptography.RS256)
	SigningAlgoES256  SigningAlgo = SigningAlgo(cryptography.ES256)
	SigningAlgoES256K SigningAlgo = SigningAlgo(cryptography.ES256K)
	SigningAlgoNone   SigningAlgo = "none"
)

// KeyAlgo is an id_token signing algorithm
type KeyAlgo string

const (
	KeyAlgoEdDSA  KeyAlgo = KeyAlgo(cryptography.EdDSA)
	KeyAlgoRS256  KeyAlgo = KeyAlgo(cryptography.RS256)
	KeyAlgoES256  KeyAlgo = KeyAlgo(cryptography.ES256)
	KeyAlgoES256K KeyAlgo = KeyAlgo(cryptography.ES256K)
)

type VerificationMode string

const (
	VerificationModeInternal VerificationMode = "INTERNAL"
	VerificationModeExternal VerificationMode = "EXTERNAL"
)

// Signer identifies the verification method that validated a token
type Signer struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Controller string `json:"controller"`
}

var nowFunc = time.Now

func expiresIn(seconds int) time.Duration {
	if seconds <= 0 {
		return DefaultExpiresIn
	}
	return time.Duration(seconds) * time.Second
}
