package w3cdid

import (
	"github.com/pkg/errors"
	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/did/w3cdid/cryptography"
)

// SignatureValidator checks a signature against one verification method.
// A non-nil error means the method cannot be used for this signature at all
// (wrong key type, no key material), as opposed to a signature mismatch.
type SignatureValidator func(vm cryptography.VerificationMethod) (bool, error)

var (
	ErrNoVerificationMethod = errors.New("no verification method specified")
	ErrKeyNotFound          = errors.New("verification method not found")
	ErrNoApplicableMethod   = errors.New("no applicable verification method")
	ErrNoValidSignatures    = errors.New("no valid signatures")
)

// Signed checks if a signature was made by a key in the Document. When kid is
// set only that method is tried, otherwise every signing method is tried in
// order and the first valid one is returned.
func (d *Document) Signed(kid string, validate SignatureValidator) (*cryptography.VerificationMethod, error) {
	if len(d.VerificationMethod) == 0 && len(d.relationships()) == 0 {
		return nil, ErrNoVerificationMethod
	}

	var candidates []cryptography.VerificationMethod

	if kid != "" {
		vm, ok := d.VerificationMethodByID(kid)
		if !ok {
			return nil, errors.Wrapf(ErrKeyNotFound, "%s", kid)
		}
		candidates = append(candidates, *vm)
	} else {
		candidates = d.SigningMethods()
	}

	applicable := 0

	for _, vm := range candidates {
		ok, err := validate(vm)
		if err != nil {
			logging.Entry().WithField("type", vm.Type).WithError(err).Debug("validating signature")
			continue
		}

		applicable++

		if ok {
			return &vm, nil
		}
	}

	if applicable == 0 {
		return nil, ErrNoApplicableMethod
	}

	return nil, ErrNoValidSignatures
}
