// Package errs holds the error kinds shared by the SIOP builders, verifiers and
// the DID resolution gateway.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	BadParams                                   Kind = "BAD_PARAMS"
	VerifyBadParams                             Kind = "VERIFY_BAD_PARAMS"
	BadNonce                                    Kind = "BAD_NONCE"
	RequestObjectTypeNotSet                     Kind = "REQUEST_OBJECT_TYPE_NOT_SET"
	RegistrationObjectTypeNotSet                Kind = "REGISTRATION_OBJECT_TYPE_NOT_SET"
	NoReferenceURI                              Kind = "NO_REFERENCE_URI"
	BadSignatureParams                          Kind = "BAD_SIGNATURE_PARAMS"
	RequestClaimsPresentationDefinitionNotValid Kind = "REQUEST_CLAIMS_PRESENTATION_DEFINITION_NOT_VALID"
	ResolutionError                             Kind = "RESOLUTION_ERROR"
	SignatureError                              Kind = "SIGNATURE_ERROR"
	NoIssuerDID                                 Kind = "NO_ISSUER_DID"
	NoVerificationKey                           Kind = "NO_VERIFICATION_KEY"
	InvalidSignature                            Kind = "INVALID_SIGNATURE"
	VerificationError                           Kind = "VERIFICATION_ERROR"
)

// Error is a classified failure. The message and cause are optional.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func New(k Kind, msg string) error {
	return &Error{Kind: k, msg: msg}
}

func Newf(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under k. A nil err still yields an error of kind k.
func Wrap(err error, k Kind, msg string) error {
	return &Error{Kind: k, msg: msg, err: err}
}

// KindOf returns the outermost kind found in the chain of err, or "" when err
// was never classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether any error in the chain of err carries kind k.
func Is(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
