// Package presexch holds the DIF Presentation Exchange structures carried in
// SIOP request claims and response presentations.
package presexch

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const (
	All  Selection = "all"
	Pick Selection = "pick"

	Required  Preference = "required"
	Preferred Preference = "preferred"
)

type (
	// Selection can be "all" or "pick".
	Selection string
	// Preference can be "required" or "preferred".
	Preference string
)

var ErrInvalidDefinition = errors.New("invalid presentation definition")

// Format lists the claim formats and algorithms a verifier accepts.
type Format struct {
	Jwt   *JwtType `json:"jwt,omitempty"`
	JwtVC *JwtType `json:"jwt_vc,omitempty"`
	JwtVP *JwtType `json:"jwt_vp,omitempty"`
	Ldp   *LdpType `json:"ldp,omitempty"`
	LdpVC *LdpType `json:"ldp_vc,omitempty"`
	LdpVP *LdpType `json:"ldp_vp,omitempty"`
}

type JwtType struct {
	Alg []string `json:"alg,omitempty"`
}

type LdpType struct {
	ProofType []string `json:"proof_type,omitempty"`
}

// PresentationDefinition describes the proofs a verifier requires
// (https://identity.foundation/presentation-exchange/).
type PresentationDefinition struct {
	ID                     string                   `json:"id"`
	Name                   string                   `json:"name,omitempty"`
	Purpose                string                   `json:"purpose,omitempty"`
	Format                 *Format                  `json:"format,omitempty"`
	SubmissionRequirements []*SubmissionRequirement `json:"submission_requirements,omitempty"`
	InputDescriptors       []*InputDescriptor       `json:"input_descriptors"`
}

type SubmissionRequirement struct {
	Name       string                   `json:"name,omitempty"`
	Purpose    string                   `json:"purpose,omitempty"`
	Rule       Selection                `json:"rule,omitempty"`
	Count      *int                     `json:"count,omitempty"`
	Min        int                      `json:"min,omitempty"`
	Max        int                      `json:"max,omitempty"`
	From       string                   `json:"from,omitempty"`
	FromNested []*SubmissionRequirement `json:"from_nested,omitempty"`
}

type InputDescriptor struct {
	ID          string                 `json:"id"`
	Group       []string               `json:"group,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Purpose     string                 `json:"purpose,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Schema      []*Schema              `json:"schema"`
	Constraints *Constraints           `json:"constraints,omitempty"`
}

type Schema struct {
	URI      string `json:"uri"`
	Required bool   `json:"required,omitempty"`
}

type Constraints struct {
	LimitDisclosure bool        `json:"limit_disclosure,omitempty"`
	SubjectIsIssuer *Preference `json:"subject_is_issuer,omitempty"`
	Fields          []*Field    `json:"fields,omitempty"`
}

type Field struct {
	Path      []string               `json:"path,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Purpose   string                 `json:"purpose,omitempty"`
	Filter    map[string]interface{} `json:"filter,omitempty"`
	Predicate *Preference            `json:"predicate,omitempty"`
}

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["presentation_definition"],
  "properties": {
    "presentation_definition": {
      "type": "object",
      "required": ["id", "input_descriptors"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "purpose": {"type": "string"},
        "submission_requirements": {"type": "array"},
        "input_descriptors": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["id", "schema"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "name": {"type": "string"},
              "purpose": {"type": "string"},
              "schema": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["uri"],
                  "properties": {
                    "uri": {"type": "string", "minLength": 1},
                    "required": {"type": "boolean"}
                  }
                }
              },
              "constraints": {"type": "object"}
            }
          }
        }
      }
    }
  }
}`

// ValidateSchema checks the definition against the Presentation Exchange
// definition schema.
func (pd *PresentationDefinition) ValidateSchema() error {
	if pd == nil {
		return errors.Wrap(ErrInvalidDefinition, "missing")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewGoLoader(struct {
			PD *PresentationDefinition `json:"presentation_definition"`
		}{PD: pd}),
	)
	if err != nil {
		return errors.Wrap(err, "validating presentation definition")
	}

	if result.Valid() {
		return nil
	}

	resultErrors := result.Errors()

	errs := make([]string, len(resultErrors))
	for i := range resultErrors {
		errs[i] = resultErrors[i].String()
	}

	return errors.Wrap(ErrInvalidDefinition, strings.Join(errs, ","))
}

// ParseDefinition decodes and validates a JSON presentation definition.
func ParseDefinition(b []byte) (*PresentationDefinition, error) {
	pd := &PresentationDefinition{}
	if err := json.Unmarshal(b, pd); err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}

	if err := pd.ValidateSchema(); err != nil {
		return nil, err
	}

	return pd, nil
}
