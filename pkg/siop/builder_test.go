package siop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcfw/siop/pkg/did/resolver"
	"github.com/tcfw/siop/pkg/errs"
)

func TestRPBuilderEmpty(t *testing.T) {
	_, err := NewRPBuilder().Build()
	if assert.Error(t, err) {
		assert.Equal(t, errs.BadParams, errs.KindOf(err))
		assert.Contains(t, err.Error(), "redirect uri not set")
		assert.Contains(t, err.Error(), "request by not set")
		assert.Contains(t, err.Error(), "registration by not set")
		assert.Contains(t, err.Error(), "signature not set")
	}
}

func TestRPBuilderAllSet(t *testing.T) {
	rp, err := NewRPBuilder().
		AddDidMethod("factom").
		AddResolver("ethr", resolver.EthrResolver{}).
		Redirect("https://redirect.me").
		RequestBy(PassByValue).
		Response(ResponseModePost).
		RegistrationBy(PassByReference, "https://registration.here").
		AddCredentialFormat(CredentialFormatJWT).
		InternalSignature("myprivatekey", "did:example:123", "did:example:123#key").
		Build()

	assert.NoError(t, err)
	assert.NotNil(t, rp)
	assert.Equal(t, []string{"did:factom:", "did:ethr:"}, rp.RequestOpts().Registration.DidMethodsSupported)
}

func TestRPBuilderNilResolver(t *testing.T) {
	_, err := NewRPBuilder().
		AddResolver("ethr", nil).
		Redirect("https://redirect.me").
		RequestBy(PassByValue).
		RegistrationBy(PassByValue).
		InternalSignature(testHexKey, testDID, testKID).
		Build()

	assert.Equal(t, errs.BadParams, errs.KindOf(err))
}

func TestRPBuilderRequest(t *testing.T) {
	rp, err := NewRPBuilder().
		Redirect(exampleRedirectURL).
		RequestBy(PassByReference, exampleReferenceURL).
		InternalSignature(testHexKey, testDID, testKID).
		RegistrationBy(PassByValue).
		AddDidMethod("ethr").
		AddCredentialFormat(CredentialFormatJWT).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	req, err := rp.CreateAuthenticationRequest(context.Background(), RequestParams{Nonce: testNonce, State: testState})
	if err != nil {
		t.Fatal(err)
	}

	expected := "openid://?response_type=id_token&scope=openid" +
		"&client_id=did%3Aethr%3A0x0106a2e985b1E1De9B5ddb4aF6dC9e928F4e99D0" +
		"&redirect_uri=https%3A%2F%2Facme.com%2Fhello" +
		"&iss=did%3Aethr%3A0x0106a2e985b1E1De9B5ddb4aF6dC9e928F4e99D0" +
		"&response_mode=post&response_context=rp" +
		"&nonce=qBrR7mqnY3Qr49dAZycPF8FzgE83m6H0c2l0bzP4xSg&state=b32f0087fc9816eb813fd11f" +
		"&registration=%7B%22did_methods_supported%22%3A%5B%22did%3Aethr%3A%22%5D%2C%22subject_identifiers_supported%22%3A%22did%22" +
		"%2C%22credential_formats_supported%22%3A%5B%22jwt%22%5D%7D" +
		"&request_uri=https%3A%2F%2Frp.acme.com%2Fsiop%2Fjwts"

	assert.Equal(t, expected, req.EncodedURI)
}

func TestFromRequestOpts(t *testing.T) {
	_, err := FromRequestOpts(&AuthenticationRequestOpts{})
	assert.Error(t, err)

	_, err = FromRequestOpts(nil)
	assert.Equal(t, errs.BadParams, errs.KindOf(err))

	rp, err := FromRequestOpts(testRequestOpts(testKID))
	assert.NoError(t, err)
	assert.NotNil(t, rp)
}

func TestOPBuilder(t *testing.T) {
	_, err := NewOPBuilder().Build()
	if assert.Error(t, err) {
		assert.Equal(t, errs.BadParams, errs.KindOf(err))
		assert.Contains(t, err.Error(), "signature not set")
	}

	op, err := NewOPBuilder().
		AddDidMethod("ethr").
		Response(ResponseModePost).
		RegistrationBy(PassByReference, "https://registration.here").
		InternalSignature("myprivatekey", "did:example:123", "did:example:123#key").
		WithExpiresIn(1000).
		Build()

	assert.NoError(t, err)
	if assert.NotNil(t, op) {
		assert.Equal(t, 1000, op.ResponseOpts().ExpiresIn)
	}
}

func TestFromOpts(t *testing.T) {
	_, err := FromOpts(&AuthenticationResponseOpts{}, &VerifyOpts{})
	assert.Error(t, err)

	_, err = FromOpts(nil, nil)
	assert.Equal(t, errs.BadParams, errs.KindOf(err))
}

func TestRPAndOP(t *testing.T) {
	ctx := context.Background()
	rpID := newEthrIdentity(t)
	opID := newEthrIdentity(t)

	rp, err := NewRPBuilder().
		Redirect(exampleRedirectURL).
		RequestBy(PassByValue).
		InternalSignature(rpID.hexKey, rpID.did, rpID.kid).
		AddDidMethod("ethr").
		RegistrationBy(PassByValue).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	op, err := NewOPBuilder().
		AddDidMethod("ethr").
		InternalSignature(opID.hexKey, opID.did, opID.kid).
		RegistrationBy(PassByValue).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	req, err := rp.CreateAuthenticationRequest(ctx, RequestParams{Nonce: testNonce, State: testState})
	if err != nil {
		t.Fatal(err)
	}

	verifiedReq, err := op.VerifyAuthenticationRequestURI(ctx, req.EncodedURI)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, rpID.did, verifiedReq.Issuer)
	assert.Equal(t, Signer{ID: rpID.kid, Type: "EcdsaSecp256k1RecoveryMethod2020", Controller: rpID.did}, verifiedReq.Signer)

	resp, err := op.CreateAuthenticationResponse(ctx, verifiedReq)
	if err != nil {
		t.Fatal(err)
	}

	verifiedResp, err := rp.VerifyAuthenticationResponseJWT(ctx, resp.JWT, ResponseParams{
		Nonce:    testNonce,
		State:    testState,
		Audience: exampleRedirectURL,
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, opID.did, verifiedResp.Issuer)
	assert.Equal(t, opID.did, verifiedResp.Payload.DID)

	_, err = rp.VerifyAuthenticationResponseJWT(ctx, resp.JWT, ResponseParams{Nonce: "another"})
	assert.Equal(t, errs.VerificationError, errs.KindOf(err))

	_, err = op.VerifyAuthenticationRequest(ctx, req.JWT, "another")
	assert.Equal(t, errs.VerificationError, errs.KindOf(err))
}

type staticFetcher map[string]string

func (f staticFetcher) Fetch(_ context.Context, uri string) (string, error) {
	jwt, ok := f[uri]
	if !ok {
		return "", errs.New(errs.BadParams, "unknown request uri")
	}
	return jwt, nil
}

func TestOPRequestByReference(t *testing.T) {
	ctx := context.Background()

	req, err := CreateAuthenticationRequestURI(ctx, testSignedRequestOpts(testSignerCtrl))
	if err != nil {
		t.Fatal(err)
	}

	op, err := FromOpts(&AuthenticationResponseOpts{
		SignatureType: InternalSignature{HexPrivateKey: testHexKey, DID: testSignerDID, KID: testSignerCtrl},
		Registration:  ResponseRegistrationOpts{RegistrationBy: PassByOpts{Type: PassByValue}},
	}, testVerifyOpts())
	if err != nil {
		t.Fatal(err)
	}

	op.WithFetcher(staticFetcher{exampleReferenceURL: req.JWT})

	verified, err := op.VerifyAuthenticationRequestURI(ctx, req.EncodedURI)
	if assert.NoError(t, err) {
		assert.Equal(t, testSignerDID, verified.Issuer)
	}
}
