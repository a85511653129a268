package siop

import (
	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/presexch"
)

// PresentationDefinitionWithLocation places a definition in the id_token or
// the vp_token claim
type PresentationDefinitionWithLocation struct {
	Location   PresentationLocation
	Definition *presexch.PresentationDefinition
}

type ClaimOpts struct {
	PresentationDefinitions []PresentationDefinitionWithLocation
}

// ClaimPayload is the OIDC claims request parameter
type ClaimPayload struct {
	IDToken *IDTokenClaimPayload `json:"id_token,omitempty"`
	VPToken *VPTokenClaimPayload `json:"vp_token,omitempty"`
}

type IDTokenClaimPayload struct {
	VerifiablePresentations []VPTokenClaimPayload `json:"verifiable_presentations,omitempty"`
}

type VPTokenClaimPayload struct {
	PresentationDefinition *presexch.PresentationDefinition `json:"presentation_definition"`
}

// createClaims validates every definition before building the claims object.
// Only one vp_token definition can be carried.
func createClaims(opts *ClaimOpts) (*ClaimPayload, error) {
	if opts == nil || len(opts.PresentationDefinitions) == 0 {
		return nil, nil
	}

	claims := &ClaimPayload{}

	for _, pd := range opts.PresentationDefinitions {
		if err := pd.Definition.ValidateSchema(); err != nil {
			return nil, errs.Wrap(err, errs.RequestClaimsPresentationDefinitionNotValid, "")
		}

		switch pd.Location {
		case PresentationLocationVPToken:
			if claims.VPToken != nil {
				return nil, errs.New(errs.RequestClaimsPresentationDefinitionNotValid, "only one vp_token presentation definition allowed")
			}
			claims.VPToken = &VPTokenClaimPayload{PresentationDefinition: pd.Definition}
		case PresentationLocationIDToken, "":
			if claims.IDToken == nil {
				claims.IDToken = &IDTokenClaimPayload{}
			}
			claims.IDToken.VerifiablePresentations = append(claims.IDToken.VerifiablePresentations, VPTokenClaimPayload{PresentationDefinition: pd.Definition})
		default:
			return nil, errs.Newf(errs.RequestClaimsPresentationDefinitionNotValid, "unknown presentation location %q", pd.Location)
		}
	}

	return claims, nil
}

// PresentationDefinitions lists the definitions requested in the claims
func (c *ClaimPayload) PresentationDefinitions() []PresentationDefinitionWithLocation {
	if c == nil {
		return nil
	}

	var out []PresentationDefinitionWithLocation

	if c.VPToken != nil && c.VPToken.PresentationDefinition != nil {
		out = append(out, PresentationDefinitionWithLocation{Location: PresentationLocationVPToken, Definition: c.VPToken.PresentationDefinition})
	}

	if c.IDToken != nil {
		for _, vp := range c.IDToken.VerifiablePresentations {
			if vp.PresentationDefinition != nil {
				out = append(out, PresentationDefinitionWithLocation{Location: PresentationLocationIDToken, Definition: vp.PresentationDefinition})
			}
		}
	}

	return out
}
