package siop

import (
	"context"
	"net/http"
	"time"

	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/resolver"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
)

// ResolveOpts chooses how signer DIDs are resolved. Resolver takes precedence;
// otherwise DidMethods are resolved through the default method resolvers and
// also act as the allow-list for internal verification.
type ResolveOpts struct {
	Resolver       did.Resolver
	DidMethods     []string
	ResolveURL     string
	UniversalToken string
	HTTPClient     *http.Client
}

func (o ResolveOpts) configured() bool {
	return o.Resolver != nil || len(o.DidMethods) > 0
}

func (o ResolveOpts) resolver() (did.Resolver, error) {
	opts := []resolver.DefaultsOption{resolver.WithHTTPClient(o.HTTPClient)}
	if o.ResolveURL != "" {
		opts = append(opts, resolver.WithUniversalURL(o.ResolveURL))
	}
	if o.UniversalToken != "" {
		opts = append(opts, resolver.WithUniversalToken(o.UniversalToken))
	}

	methods := o.DidMethods
	if o.Resolver == nil && len(methods) == 0 {
		methods = resolver.DefaultMethods
	}

	return resolver.New(o.Resolver, methods, opts...)
}

func (o ResolveOpts) allows(method string) bool {
	if len(o.DidMethods) == 0 {
		return true
	}
	for _, m := range o.DidMethods {
		if w3cdid.MethodName(m) == method {
			return true
		}
	}
	return false
}

func (o ResolveOpts) resolve(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	r, err := o.resolver()
	if err != nil {
		return nil, errs.Wrap(err, errs.VerifyBadParams, "building resolver")
	}

	doc, err := r.Resolve(ctx, id)
	if err != nil {
		if errs.KindOf(err) != errs.ResolutionError {
			err = errs.Wrap(err, errs.ResolutionError, "")
		}
		return nil, errs.Wrap(err, errs.VerifyBadParams, "resolving "+id.String())
	}

	return doc, nil
}

// Verification is either an InternalVerification or an ExternalVerification
type Verification interface {
	Mode() VerificationMode
	resolveOpts() ResolveOpts
}

// InternalVerification checks signatures in process against the resolved
// DID document
type InternalVerification struct {
	ResolveOpts ResolveOpts
}

// ExternalVerification posts the token to a remote verification endpoint
type ExternalVerification struct {
	VerifyURI   string
	AuthZToken  string
	ResolveOpts ResolveOpts
	Client      *http.Client
}

func (InternalVerification) Mode() VerificationMode { return VerificationModeInternal }
func (ExternalVerification) Mode() VerificationMode { return VerificationModeExternal }

func (v InternalVerification) resolveOpts() ResolveOpts { return v.ResolveOpts }
func (v ExternalVerification) resolveOpts() ResolveOpts { return v.ResolveOpts }

// VerifyOpts are the checks applied when verifying a request or response.
// Nonce, State and Audience are compared only when set.
type VerifyOpts struct {
	Verification Verification
	Nonce        string
	State        string
	Audience     string
	ClockSkew    time.Duration
	Now          func() time.Time
}

const defaultClockSkew = 30 * time.Second

func (o *VerifyOpts) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return nowFunc()
}

func (o *VerifyOpts) skew() time.Duration {
	if o.ClockSkew > 0 {
		return o.ClockSkew
	}
	return defaultClockSkew
}

func normaliseVerification(v Verification) (Verification, error) {
	switch t := v.(type) {
	case *InternalVerification:
		if t != nil {
			return *t, nil
		}
	case *ExternalVerification:
		if t != nil {
			return normaliseVerification(*t)
		}
	case InternalVerification:
		return t, nil
	case ExternalVerification:
		if t.VerifyURI == "" {
			return nil, errs.New(errs.VerifyBadParams, "external verification requires a verify uri")
		}
		return t, nil
	}

	return nil, errs.New(errs.VerifyBadParams, "verification must be internal or external")
}
