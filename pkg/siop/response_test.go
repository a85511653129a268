package siop

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/jws"
)

func verifiedTestRequest(t *testing.T) *VerifiedAuthenticationRequestWithJWT {
	t.Helper()

	req, err := CreateAuthenticationRequestJWT(context.Background(), testSignedRequestOpts(testSignerCtrl))
	if err != nil {
		t.Fatal(err)
	}

	verified, err := VerifyAuthenticationRequestJWT(context.Background(), req.JWT, testVerifyOpts())
	if err != nil {
		t.Fatal(err)
	}

	return verified
}

func TestResponseRoundTrip(t *testing.T) {
	ctx := context.Background()
	op := newEthrIdentity(t)

	req := verifiedTestRequest(t)

	resp, err := CreateAuthenticationResponse(ctx, req, &AuthenticationResponseOpts{
		SignatureType: InternalSignature{HexPrivateKey: op.hexKey, DID: op.did, KID: op.kid},
		Registration:  ResponseRegistrationOpts{RegistrationBy: PassByOpts{Type: PassByValue}, DidMethodsSupported: []string{"ethr"}},
		ResponseMode:  ResponseModePost,
		DID:           op.did,
		ExpiresIn:     2000,
	})
	if err != nil {
		t.Fatal(err)
	}

	p := resp.Payload
	assert.Equal(t, SelfIssuedIssuer, p.Iss)
	assert.Equal(t, op.did, p.Sub)
	assert.Equal(t, op.did, p.DID)
	assert.Equal(t, exampleRedirectURL, p.Aud)
	assert.Equal(t, testNonce, p.Nonce)
	assert.Equal(t, testState, p.State)
	assert.Equal(t, int64(2000), p.ExpiresAt-p.IssuedAt)
	assert.Equal(t, "secp256k1", p.SubJWK["crv"])
	if assert.NotNil(t, p.Registration) {
		assert.Equal(t, []string{"did:ethr:"}, p.Registration.DidMethodsSupported)
		assert.True(t, p.Registration.DidsSupported)
		assert.Equal(t, SelfIssuedIssuer, p.Registration.Issuer)
	}

	verified, err := VerifyAuthenticationResponseJWT(ctx, resp.JWT, &VerifyOpts{
		Verification: testVerifyOpts().Verification,
		Nonce:        testNonce,
		State:        testState,
		Audience:     exampleRedirectURL,
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, op.did, verified.Issuer)
	assert.Equal(t, op.kid, verified.Signer.ID)
	assert.Equal(t, p, verified.Payload)
}

func TestResponseVerificationFailures(t *testing.T) {
	ctx := context.Background()
	op := newEthrIdentity(t)

	resp, err := CreateAuthenticationResponse(ctx, verifiedTestRequest(t), &AuthenticationResponseOpts{
		SignatureType: InternalSignature{HexPrivateKey: op.hexKey, DID: op.did, KID: op.kid},
		Registration:  ResponseRegistrationOpts{RegistrationBy: PassByOpts{Type: PassByValue}},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]*VerifyOpts{
		"nonce":    {Nonce: "not-the-request-nonce"},
		"state":    {State: "00"},
		"audience": {Audience: "https://evil.example"},
	}

	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			opts.Verification = testVerifyOpts().Verification
			_, err := VerifyAuthenticationResponseJWT(ctx, resp.JWT, opts)
			assert.Equal(t, errs.VerificationError, errs.KindOf(err), "%v", err)
		})
	}

	t.Run("request token is not a response", func(t *testing.T) {
		_, err := VerifyAuthenticationResponseJWT(ctx, verifiedTestRequest(t).JWT, testVerifyOpts())
		assert.Equal(t, errs.VerificationError, errs.KindOf(err))
	})
}

func TestResponseWithKeyDID(t *testing.T) {
	ctx := context.Background()
	op := newEd25519KeyIdentity(t)

	resp, err := CreateAuthenticationResponse(ctx, verifiedTestRequest(t), &AuthenticationResponseOpts{
		SignatureType: &InternalSignature{HexPrivateKey: op.hexKey, DID: op.did, KID: op.kid},
		Registration:  ResponseRegistrationOpts{RegistrationBy: PassByOpts{Type: PassByReference, ReferenceURI: "https://op.example/reg"}},
		VP: []VerifiablePresentationResponseOpts{{
			Format:       PresentationFormatLDP,
			Location:     PresentationLocationVPToken,
			Presentation: json.RawMessage(`{"type":["VerifiablePresentation"]}`),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Nil(t, resp.Payload.Registration)
	assert.Equal(t, "https://op.example/reg", resp.RegistrationURI)
	assert.Equal(t, "OKP", resp.Payload.SubJWK["kty"])
	if assert.NotNil(t, resp.Payload.VPToken) {
		assert.Equal(t, PresentationFormatLDP, resp.Payload.VPToken.Format)
	}

	verified, err := VerifyAuthenticationResponseJWT(ctx, resp.JWT, &VerifyOpts{
		Verification: testVerifyOpts("key").Verification,
		Nonce:        testNonce,
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, op.did, verified.Issuer)
	assert.Equal(t, "Ed25519VerificationKey2018", verified.Signer.Type)
}

func TestCreateAuthenticationResponseValidation(t *testing.T) {
	ctx := context.Background()
	op := newEthrIdentity(t)
	sig := InternalSignature{HexPrivateKey: op.hexKey, DID: op.did, KID: op.kid}
	reg := ResponseRegistrationOpts{RegistrationBy: PassByOpts{Type: PassByValue}}

	noNonce := &VerifiedAuthenticationRequestWithJWT{Payload: &AuthenticationRequestPayload{RedirectURI: exampleRedirectURL}}

	tests := []struct {
		name string
		req  *VerifiedAuthenticationRequestWithJWT
		opts *AuthenticationResponseOpts
		kind errs.Kind
	}{
		{"nil options", noNonce, nil, errs.BadParams},
		{"no signature", noNonce, &AuthenticationResponseOpts{Registration: reg}, errs.BadSignatureParams},
		{"no registration", noNonce, &AuthenticationResponseOpts{SignatureType: sig}, errs.RegistrationObjectTypeNotSet},
		{"no redirect", nil, &AuthenticationResponseOpts{SignatureType: sig, Registration: reg, Nonce: "n"}, errs.BadParams},
		{"no nonce", noNonce, &AuthenticationResponseOpts{SignatureType: sig, Registration: reg}, errs.BadNonce},
		{"foreign did", noNonce, &AuthenticationResponseOpts{SignatureType: sig, Registration: reg, Nonce: "n", DID: testDID}, errs.BadParams},
		{"bad vp format", noNonce, &AuthenticationResponseOpts{SignatureType: sig, Registration: reg, Nonce: "n", VP: []VerifiablePresentationResponseOpts{{
			Format:       "pdf",
			Presentation: json.RawMessage(`{}`),
		}}}, errs.BadParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateAuthenticationResponse(ctx, tt.req, tt.opts)
			assert.Equal(t, tt.kind, errs.KindOf(err), "%v", err)
		})
	}
}

func TestEncodeResponse(t *testing.T) {
	r := &AuthenticationResponseWithJWT{
		JWT:         "a.b.c",
		State:       testState,
		RedirectURI: "https://acme.com/hello?x=1",
	}

	r.ResponseMode = ResponseModeQuery
	enc, err := EncodeResponse(r)
	if assert.NoError(t, err) {
		assert.Equal(t, "https://acme.com/hello?x=1&id_token=a.b.c&state="+testState, enc.URL)
	}

	r.ResponseMode = ResponseModeFragment
	enc, err = EncodeResponse(r)
	if assert.NoError(t, err) {
		assert.Equal(t, "https://acme.com/hello?x=1#id_token=a.b.c&state="+testState, enc.URL)
		idToken, state, err := ParseResponseParams(enc.URL)
		assert.NoError(t, err)
		assert.Equal(t, "a.b.c", idToken)
		assert.Equal(t, testState, state)
	}

	r.ResponseMode = ResponseModeFormPost
	enc, err = EncodeResponse(r)
	if assert.NoError(t, err) {
		assert.Equal(t, r.RedirectURI, enc.URL)
		assert.Equal(t, "id_token=a.b.c&state="+testState, enc.Body)
		assert.Equal(t, FormURLEncoded, enc.ContentType)
	}

	r.ResponseMode = "carrier-pigeon"
	_, err = EncodeResponse(r)
	assert.Equal(t, errs.BadParams, errs.KindOf(err))

	_, _, err = ParseResponseParams("state=x")
	assert.Equal(t, errs.BadParams, errs.KindOf(err))
}

// remoteSigner signs JWS signing inputs like an external key service
func remoteSigner(t *testing.T, hexKey, token string) *httptest.Server {
	key, _, err := cryptography.ParsePrivateKeyHex(hexKey, cryptography.ES256K)
	if err != nil {
		t.Fatal(err)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		req := &jws.RemoteSignRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		input, err := base64.RawURLEncoding.DecodeString(req.Payload)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sig, err := cryptography.SignES256K(key.(*ecdsa.PrivateKey), input)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(&jws.RemoteSignResponse{Signature: base64.RawURLEncoding.EncodeToString(sig)})
	}))
}

func TestExternalSignature(t *testing.T) {
	srv := remoteSigner(t, testHexKey, "secret")
	defer srv.Close()

	opts := testSignedRequestOpts(testSignerCtrl)
	opts.SignatureType = ExternalSignature{SignatureURI: srv.URL, DID: testSignerDID, AuthZToken: "secret", KID: testSignerCtrl}

	req, err := CreateAuthenticationRequestJWT(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	verified, err := VerifyAuthenticationRequestJWT(context.Background(), req.JWT, testVerifyOpts())
	if assert.NoError(t, err) {
		assert.Equal(t, testSignerDID, verified.Issuer)
	}

	opts.SignatureType = ExternalSignature{SignatureURI: srv.URL, DID: testSignerDID, AuthZToken: "wrong", KID: testSignerCtrl}
	_, err = CreateAuthenticationRequestJWT(context.Background(), opts)
	assert.Equal(t, errs.SignatureError, errs.KindOf(err))
}

func TestExternalVerification(t *testing.T) {
	verified := true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &jws.RemoteVerifyRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil || strings.Count(req.JWT, ".") != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(&jws.RemoteVerifyResponse{Verified: verified})
	}))
	defer srv.Close()

	req, err := CreateAuthenticationRequestJWT(context.Background(), testRequestOpts(testKID))
	if err != nil {
		t.Fatal(err)
	}

	opts := &VerifyOpts{Verification: ExternalVerification{VerifyURI: srv.URL}}

	v, err := VerifyAuthenticationRequestJWT(context.Background(), req.JWT, opts)
	if assert.NoError(t, err) {
		assert.Equal(t, testDID, v.Issuer)
		assert.Equal(t, testKID, v.Signer.ID)
		assert.Nil(t, v.DIDDocument)
	}

	verified = false
	_, err = VerifyAuthenticationRequestJWT(context.Background(), req.JWT, opts)
	assert.Equal(t, errs.InvalidSignature, errs.KindOf(err))

	srv.Close()
	_, err = VerifyAuthenticationRequestJWT(context.Background(), req.JWT, opts)
	assert.Equal(t, errs.VerificationError, errs.KindOf(err))
}
