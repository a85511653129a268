package presexch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const insurancePlans = `{
	"id": "Insurance Plans",
	"input_descriptors": [
		{
			"id": "Ontario Health Insurance Plan",
			"schema": [
				{"uri": "https://did.itsourweb.org:3000/smartcredential/Ontario-Health-Insurance-Plan"}
			]
		}
	]
}`

func TestParseDefinition(t *testing.T) {
	pd, err := ParseDefinition([]byte(insurancePlans))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "Insurance Plans", pd.ID)
	if assert.Len(t, pd.InputDescriptors, 1) {
		assert.Equal(t, "Ontario Health Insurance Plan", pd.InputDescriptors[0].ID)
		assert.Equal(t, "https://did.itsourweb.org:3000/smartcredential/Ontario-Health-Insurance-Plan", pd.InputDescriptors[0].Schema[0].URI)
	}
}

func TestValidateSchemaFailures(t *testing.T) {
	tests := map[string]*PresentationDefinition{
		"nil":                  nil,
		"missing id":           {InputDescriptors: []*InputDescriptor{{ID: "a", Schema: []*Schema{{URI: "https://a"}}}}},
		"no descriptors":       {ID: "x"},
		"descriptor no id":     {ID: "x", InputDescriptors: []*InputDescriptor{{Schema: []*Schema{{URI: "https://a"}}}}},
		"descriptor no uri":    {ID: "x", InputDescriptors: []*InputDescriptor{{ID: "a", Schema: []*Schema{{}}}}},
		"descriptor no schema": {ID: "x", InputDescriptors: []*InputDescriptor{{ID: "a"}}},
	}

	for name, pd := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, pd.ValidateSchema(), ErrInvalidDefinition)
		})
	}
}

func TestParseDefinitionBadJSON(t *testing.T) {
	_, err := ParseDefinition([]byte(`{"id":`))
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = ParseDefinition([]byte(`{"id": 5}`))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}
