package siop

import (
	"github.com/hashicorp/go-multierror"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/resolver"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
)

// resolverSet collects the method resolvers added to a builder
type resolverSet struct {
	methods   []string
	resolvers map[string]did.Resolver
	problems  *multierror.Error
}

func (s *resolverSet) addResolver(method string, r did.Resolver) {
	method = w3cdid.MethodName(method)

	if method == "" || r == nil {
		s.problems = multierror.Append(s.problems, errs.Newf(errs.BadParams, "resolver for %q missing", method))
		return
	}

	if s.resolvers == nil {
		s.resolvers = map[string]did.Resolver{}
	}
	if _, ok := s.resolvers[method]; !ok {
		s.methods = append(s.methods, method)
	}
	s.resolvers[method] = r
}

func (s *resolverSet) addDidMethod(method string, opts ...resolver.DefaultsOption) {
	r, err := resolver.ForMethods([]string{method}, opts...)
	if err != nil {
		s.problems = multierror.Append(s.problems, err)
		return
	}
	s.addResolver(method, r)
}

// verification resolves signer DIDs through the added resolvers only
func (s *resolverSet) verification() (Verification, error) {
	if len(s.methods) == 0 {
		return InternalVerification{ResolveOpts: ResolveOpts{DidMethods: resolver.DefaultMethods}}, nil
	}

	opts := make([]resolver.Option, 0, len(s.methods))
	for _, m := range s.methods {
		opts = append(opts, resolver.WithMethod(m, s.resolvers[m]))
	}

	reg, err := resolver.NewRegistry(opts...)
	if err != nil {
		return nil, err
	}

	return InternalVerification{ResolveOpts: ResolveOpts{Resolver: reg, DidMethods: s.methods}}, nil
}

func (s *resolverSet) siopDidMethods() []string {
	return normaliseDidMethods(s.methods)
}

func buildError(what string, problems *multierror.Error) error {
	if problems.ErrorOrNil() == nil {
		return nil
	}
	return errs.Wrap(problems, errs.BadParams, "building "+what)
}
