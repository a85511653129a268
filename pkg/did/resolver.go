package did

import (
	"context"

	"github.com/tcfw/siop/pkg/did/w3cdid"
)

// Resolver allows for a DID to be resolved agnostically of any given source
type Resolver interface {
	Resolve(ctx context.Context, did w3cdid.URL) (*w3cdid.Document, error)
}

// ResolverFunc adapts a plain function to a Resolver
type ResolverFunc func(ctx context.Context, did w3cdid.URL) (*w3cdid.Document, error)

func (f ResolverFunc) Resolve(ctx context.Context, did w3cdid.URL) (*w3cdid.Document, error) {
	return f(ctx, did)
}
