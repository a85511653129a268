package resolver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
)

func testKeyDID(t *testing.T) w3cdid.URL {
	pk, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	mk, err := cryptography.EncodeMultikey(pk)
	if err != nil {
		t.Fatal(err)
	}

	return w3cdid.URL("did:key:" + mk)
}

func TestRegistryDispatch(t *testing.T) {
	calls := 0
	example := did.ResolverFunc(func(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
		calls++
		return &w3cdid.Document{ID: string(id.DID())}, nil
	})

	reg, err := NewRegistry(WithMethod("did:example", example), WithMethod("key", KeyResolver{}))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, []string{"example", "key"}, reg.Methods())
	assert.True(t, reg.Supports("example"))
	assert.False(t, reg.Supports("ethr"))

	doc, err := reg.Resolve(context.Background(), "did:example:123#keys-1")
	if assert.NoError(t, err) {
		assert.Equal(t, "did:example:123", doc.ID)
	}
	assert.Equal(t, 1, calls)

	_, err = reg.Resolve(context.Background(), "did:ethr:0x0106a2e985b1E1De9B5ddb4aF6dC9e928F4e99D0")
	assert.True(t, errs.Is(err, errs.ResolutionError))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = reg.Resolve(context.Background(), "not-a-did")
	assert.True(t, errs.Is(err, errs.ResolutionError))
}

func TestRegistryOverride(t *testing.T) {
	override := did.ResolverFunc(func(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
		return nil, ErrNotFound
	})

	reg, err := NewRegistry(WithMethod("key", KeyResolver{}), WithOverride(override))
	if err != nil {
		t.Fatal(err)
	}

	_, err = reg.Resolve(context.Background(), testKeyDID(t))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, errs.ResolutionError, errs.KindOf(err))
	assert.True(t, reg.Supports("anything"))
}

func TestRegistryBadParams(t *testing.T) {
	_, err := NewRegistry(WithMethod("", KeyResolver{}))
	assert.True(t, errs.Is(err, errs.BadParams))

	_, err = NewRegistry(WithMethod("key", nil))
	assert.True(t, errs.Is(err, errs.BadParams))

	_, err = NewRegistry(WithOverride(nil))
	assert.True(t, errs.Is(err, errs.BadParams))

	_, err = ForMethods(nil)
	assert.True(t, errs.Is(err, errs.BadParams))
}

func TestForMethods(t *testing.T) {
	reg, err := ForMethods([]string{"did:ethr:", "key", "web", "ion"}, WithCache(10, 0))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, []string{"ethr", "ion", "key", "web"}, reg.Methods())

	doc, err := reg.Resolve(context.Background(), "did:ethr:0x0106a2e985b1E1De9B5ddb4aF6dC9e928F4e99D0")
	if assert.NoError(t, err) {
		assert.Len(t, doc.VerificationMethod, 1)
	}
}

func TestResolverErrorsKeepCause(t *testing.T) {
	boom := errors.New("boom")
	reg, err := NewRegistry(WithMethod("example", did.ResolverFunc(func(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
		return nil, boom
	})))
	if err != nil {
		t.Fatal(err)
	}

	_, err = reg.Resolve(context.Background(), "did:example:1")
	assert.ErrorIs(t, err, boom)
}

func TestResolveBadEscapeInFragment(t *testing.T) {
	reg, err := ForMethods([]string{"key", "ethr"})
	if err != nil {
		t.Fatal(err)
	}

	assert.NotPanics(t, func() {
		doc, err := reg.Resolve(context.Background(), "did:ethr:0x0106a2e985b1E1De9B5ddb4aF6dC9e928F4e99D0#%zz")
		if assert.NoError(t, err) {
			assert.Equal(t, "did:ethr:0x0106a2e985b1E1De9B5ddb4aF6dC9e928F4e99D0", doc.ID)
		}
	})
}
