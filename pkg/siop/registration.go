package siop

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tcfw/siop/pkg/errs"
)

// RequestRegistrationOpts is the RP metadata sent with a request
type RequestRegistrationOpts struct {
	RegistrationBy                         PassByOpts
	DidMethodsSupported                    []string
	SubjectIdentifiersSupported            []SubjectIdentifierType
	CredentialFormatsSupported             []CredentialFormat
	ScopesSupported                        []Scope
	IDTokenSigningAlgValuesSupported       []KeyAlgo
	RequestObjectSigningAlgValuesSupported []SigningAlgo
}

// RPRegistrationMetadataPayload is the serialised RP registration object
type RPRegistrationMetadataPayload struct {
	DidMethodsSupported                    []string                `json:"did_methods_supported,omitempty"`
	SubjectIdentifiersSupported            SubjectIdentifierTypes  `json:"subject_identifiers_supported,omitempty"`
	CredentialFormatsSupported             []CredentialFormat      `json:"credential_formats_supported,omitempty"`
	ScopesSupported                        []Scope                 `json:"scopes_supported,omitempty"`
	IDTokenSigningAlgValuesSupported       []KeyAlgo               `json:"id_token_signing_alg_values_supported,omitempty"`
	RequestObjectSigningAlgValuesSupported []SigningAlgo           `json:"request_object_signing_alg_values_supported,omitempty"`
}

// SubjectIdentifierTypes is written as a bare string when it holds one
// value. Both shapes are accepted when reading.
type SubjectIdentifierTypes []SubjectIdentifierType

func (s SubjectIdentifierTypes) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]SubjectIdentifierType(s))
}

func (s *SubjectIdentifierTypes) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("\"")) {
		var one SubjectIdentifierType
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = SubjectIdentifierTypes{one}
		return nil
	}

	var many []SubjectIdentifierType
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// ResponseRegistrationOpts is the OP metadata sent with a response
type ResponseRegistrationOpts struct {
	RegistrationBy                         PassByOpts
	AuthorizationEndpoint                  string
	ScopesSupported                        []Scope
	SubjectTypesSupported                  []SubjectType
	IDTokenSigningAlgValuesSupported       []KeyAlgo
	RequestObjectSigningAlgValuesSupported []SigningAlgo
	DidsSupported                          bool
	DidMethodsSupported                    []string
	CredentialSupported                    bool
	CredentialEndpoint                     string
	CredentialFormatsSupported             []CredentialFormat
	CredentialClaimsSupported              []string
	CredentialName                         string
}

// DiscoveryMetadataPayload is the serialised OP registration object
type DiscoveryMetadataPayload struct {
	AuthorizationEndpoint                  string             `json:"authorization_endpoint,omitempty"`
	Issuer                                 string             `json:"issuer,omitempty"`
	ResponseTypesSupported                 []ResponseType     `json:"response_types_supported,omitempty"`
	ScopesSupported                        []Scope            `json:"scopes_supported,omitempty"`
	SubjectTypesSupported                  []SubjectType      `json:"subject_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported       []KeyAlgo          `json:"id_token_signing_alg_values_supported,omitempty"`
	RequestObjectSigningAlgValuesSupported []SigningAlgo      `json:"request_object_signing_alg_values_supported,omitempty"`
	DidsSupported                          bool               `json:"dids_supported,omitempty"`
	DidMethodsSupported                    []string           `json:"did_methods_supported,omitempty"`
	CredentialSupported                    bool               `json:"credential_supported,omitempty"`
	CredentialEndpoint                     string             `json:"credential_endpoint,omitempty"`
	CredentialFormatsSupported             []CredentialFormat `json:"credential_formats_supported,omitempty"`
	CredentialClaimsSupported              []string           `json:"credential_claims_supported,omitempty"`
	CredentialName                         string             `json:"credential_name,omitempty"`
}

func checkPassBy(p PassByOpts, notSet errs.Kind) error {
	switch p.Type {
	case PassByReference:
		if p.ReferenceURI == "" {
			return errs.New(errs.NoReferenceURI, "reference uri required when passing by reference")
		}
	case PassByValue:
	default:
		return errs.Newf(notSet, "unsupported pass by type %q", p.Type)
	}
	return nil
}

// ToSIOPDidMethod renders a method name as listed in did_methods_supported,
// e.g. "ethr" becomes "did:ethr:"
func ToSIOPDidMethod(method string) string {
	method = strings.TrimSuffix(strings.TrimPrefix(method, "did:"), ":")
	if i := strings.Index(method, ":"); i >= 0 {
		method = method[:i]
	}
	return "did:" + method + ":"
}

func normaliseDidMethods(methods []string) []string {
	if len(methods) == 0 {
		return nil
	}

	out := make([]string, 0, len(methods))
	seen := map[string]struct{}{}

	for _, m := range methods {
		m = ToSIOPDidMethod(m)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}

	return out
}

// createRPRegistration returns the registration payload to embed, or the
// reference uri when registration is passed by reference.
func createRPRegistration(opts RequestRegistrationOpts) (*RPRegistrationMetadataPayload, string, error) {
	if err := checkPassBy(opts.RegistrationBy, errs.RegistrationObjectTypeNotSet); err != nil {
		return nil, "", err
	}

	if opts.RegistrationBy.Type == PassByReference {
		return nil, opts.RegistrationBy.ReferenceURI, nil
	}

	return &RPRegistrationMetadataPayload{
		DidMethodsSupported:                    normaliseDidMethods(opts.DidMethodsSupported),
		SubjectIdentifiersSupported:            opts.SubjectIdentifiersSupported,
		CredentialFormatsSupported:             opts.CredentialFormatsSupported,
		ScopesSupported:                        opts.ScopesSupported,
		IDTokenSigningAlgValuesSupported:       opts.IDTokenSigningAlgValuesSupported,
		RequestObjectSigningAlgValuesSupported: opts.RequestObjectSigningAlgValuesSupported,
	}, "", nil
}

func createDiscoveryMetadata(opts ResponseRegistrationOpts) (*DiscoveryMetadataPayload, string, error) {
	if err := checkPassBy(opts.RegistrationBy, errs.RegistrationObjectTypeNotSet); err != nil {
		return nil, "", err
	}

	if opts.RegistrationBy.Type == PassByReference {
		return nil, opts.RegistrationBy.ReferenceURI, nil
	}

	authz := opts.AuthorizationEndpoint
	if authz == "" {
		authz = URIScheme
	}

	return &DiscoveryMetadataPayload{
		AuthorizationEndpoint:                  authz,
		Issuer:                                 SelfIssuedIssuer,
		ResponseTypesSupported:                 []ResponseType{ResponseTypeIDToken},
		ScopesSupported:                        opts.ScopesSupported,
		SubjectTypesSupported:                  opts.SubjectTypesSupported,
		IDTokenSigningAlgValuesSupported:       opts.IDTokenSigningAlgValuesSupported,
		RequestObjectSigningAlgValuesSupported: opts.RequestObjectSigningAlgValuesSupported,
		DidsSupported:                          opts.DidsSupported || len(opts.DidMethodsSupported) > 0,
		DidMethodsSupported:                    normaliseDidMethods(opts.DidMethodsSupported),
		CredentialSupported:                    opts.CredentialSupported,
		CredentialEndpoint:                     opts.CredentialEndpoint,
		CredentialFormatsSupported:             opts.CredentialFormatsSupported,
		CredentialClaimsSupported:              opts.CredentialClaimsSupported,
		CredentialName:                         opts.CredentialName,
	}, "", nil
}
