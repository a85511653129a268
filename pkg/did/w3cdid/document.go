package w3cdid

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/did/w3cdid/cryptography"
)

const ContextV1 = "https://www.w3.org/ns/did/v1"

type Document struct {
	Context              Context                           `json:"@context,omitempty"`
	ID                   string                            `json:"id"`
	AlsoKnownAs          []string                          `json:"alsoKnownAs,omitempty"`
	Controller           StringSet                         `json:"controller,omitempty"`
	VerificationMethod   []cryptography.VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []VerificationRelationship        `json:"authentication,omitempty"`
	AssertionMethod      []VerificationRelationship        `json:"assertionMethod,omitempty"`
	KeyAgreement         []VerificationRelationship        `json:"keyAgreement,omitempty"`
	CapabilityInvocation []VerificationRelationship        `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []VerificationRelationship        `json:"capabilityDelegation,omitempty"`
	Service              []Service                         `json:"service,omitempty"`
}

type Service struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	ServiceEndpoint interface{} `json:"serviceEndpoint"`
}

// Context is the JSON-LD @context. Strings and objects are both allowed.
type Context []interface{}

func (c *Context) UnmarshalJSON(b []byte) error {
	var one interface{}
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}

	if many, ok := one.([]interface{}); ok {
		*c = many
	} else {
		*c = Context{one}
	}

	return nil
}

// StringSet accepts either a single string or an array of strings.
type StringSet []string

func (s *StringSet) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("\"")) {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StringSet{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// VerificationRelationship is either a reference to a verification method
// or an embedded one.
type VerificationRelationship struct {
	Reference string
	Embedded  *cryptography.VerificationMethod
}

func (v VerificationRelationship) MarshalJSON() ([]byte, error) {
	if v.Embedded != nil {
		return json.Marshal(v.Embedded)
	}
	return json.Marshal(v.Reference)
}

func (v *VerificationRelationship) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("\"")) {
		return json.Unmarshal(b, &v.Reference)
	}

	vm := &cryptography.VerificationMethod{}
	if err := json.Unmarshal(b, vm); err != nil {
		return errors.Wrap(err, "decoding embedded verification method")
	}

	v.Embedded = vm
	return nil
}

// ID of the referenced or embedded method
func (v VerificationRelationship) ID() string {
	if v.Embedded != nil {
		return v.Embedded.ID
	}
	return v.Reference
}

// VerificationMethodByID looks up a method across the verificationMethod
// list and the embedded relationship entries. Relative ids (#key-1) are
// resolved against the document id.
func (d *Document) VerificationMethodByID(id string) (*cryptography.VerificationMethod, bool) {
	want := d.absolute(id)

	for i := range d.VerificationMethod {
		if d.absolute(d.VerificationMethod[i].ID) == want {
			return &d.VerificationMethod[i], true
		}
	}

	for _, rel := range d.relationships() {
		if rel.Embedded != nil && d.absolute(rel.Embedded.ID) == want {
			return rel.Embedded, true
		}
	}

	return nil, false
}

// SigningMethods lists the methods usable for signatures: authentication and
// assertionMethod entries first, then the remaining verificationMethod list.
// Duplicates are removed.
func (d *Document) SigningMethods() []cryptography.VerificationMethod {
	seen := map[string]struct{}{}
	out := []cryptography.VerificationMethod{}

	add := func(vm *cryptography.VerificationMethod) {
		id := d.absolute(vm.ID)
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, *vm)
	}

	for _, rel := range append(append([]VerificationRelationship{}, d.Authentication...), d.AssertionMethod...) {
		if rel.Embedded != nil {
			add(rel.Embedded)
			continue
		}
		if vm, ok := d.VerificationMethodByID(rel.Reference); ok {
			add(vm)
		}
	}

	for i := range d.VerificationMethod {
		if d.VerificationMethod[i].Type == cryptography.X25519KeyAgreementKey2019 {
			continue
		}
		add(&d.VerificationMethod[i])
	}

	return out
}

func (d *Document) relationships() []VerificationRelationship {
	all := []VerificationRelationship{}
	for _, rels := range [][]VerificationRelationship{
		d.Authentication,
		d.AssertionMethod,
		d.KeyAgreement,
		d.CapabilityInvocation,
		d.CapabilityDelegation,
	} {
		all = append(all, rels...)
	}
	return all
}

func (d *Document) absolute(id string) string {
	if len(id) > 0 && id[0] == '#' {
		return d.ID + id
	}
	return id
}
