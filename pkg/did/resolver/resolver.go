package resolver

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
)

var (
	ErrUnknownMethod = errors.New("unknown did method")
	ErrNotFound      = errors.New("notFound")
	ErrDeactivated   = errors.New("deactivated")
	ErrInvalidDID    = errors.New("invalidDid")
)

var _ did.Resolver = (*Registry)(nil)

// Registry dispatches resolution to a resolver per DID method. An override
// resolver, when set, takes every method.
type Registry struct {
	methods  map[string]did.Resolver
	override did.Resolver
}

type Option func(*Registry) error

// WithMethod registers r for the given DID method name
func WithMethod(method string, r did.Resolver) Option {
	return func(reg *Registry) error {
		method = w3cdid.MethodName(method)
		if method == "" {
			return errs.New(errs.BadParams, "did method name required")
		}
		if r == nil {
			return errs.Newf(errs.BadParams, "nil resolver for method %s", method)
		}

		reg.methods[method] = r
		return nil
	}
}

// WithOverride routes every DID through r regardless of method
func WithOverride(r did.Resolver) Option {
	return func(reg *Registry) error {
		if r == nil {
			return errs.New(errs.BadParams, "nil override resolver")
		}

		reg.override = r
		return nil
	}
}

func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{methods: map[string]did.Resolver{}}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Resolve resolves a DID (or the DID part of a DID URL) via the resolver
// registered for its method.
func (r *Registry) Resolve(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	bare := id.DID()

	if err := bare.Validate(); err != nil {
		return nil, errs.Wrap(errors.Wrap(ErrInvalidDID, err.Error()), errs.ResolutionError, string(id))
	}

	res := r.override
	if res == nil {
		var ok bool
		res, ok = r.methods[bare.Method()]
		if !ok {
			return nil, errs.Wrap(ErrUnknownMethod, errs.ResolutionError, bare.Method())
		}
	}

	doc, err := res.Resolve(ctx, id)
	if err != nil {
		logging.Entry().WithField("did", bare).WithError(err).Debug("resolving did")
		return nil, errs.Wrap(err, errs.ResolutionError, string(bare))
	}

	if doc == nil {
		return nil, errs.Wrap(ErrNotFound, errs.ResolutionError, string(bare))
	}

	return doc, nil
}

// Methods lists the registered method names
func (r *Registry) Methods() []string {
	m := make([]string, 0, len(r.methods))
	for k := range r.methods {
		m = append(m, k)
	}
	sort.Strings(m)
	return m
}

// Supports reports whether a DID of the given method can be resolved
func (r *Registry) Supports(method string) bool {
	if r.override != nil {
		return true
	}
	_, ok := r.methods[w3cdid.MethodName(method)]
	return ok
}
