package jws

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
	jose "gopkg.in/square/go-jose.v2"
)

const (
	defaultRemoteTimeout = 10 * time.Second
	maxRemoteResponse    = 1 << 20
)

var ErrRemote = errors.New("remote endpoint failure")

// RemoteSignRequest is posted to an external signing endpoint. Payload is the
// base64url JWS signing input.
type RemoteSignRequest struct {
	Issuer  string                 `json:"issuer"`
	KeyID   string                 `json:"kid,omitempty"`
	Alg     cryptography.Algorithm `json:"alg"`
	Payload string                 `json:"payload"`
}

type RemoteSignResponse struct {
	Signature string `json:"signature"`
}

// RemoteSigner delegates signing of the JWS signing input to an HTTP endpoint
type RemoteSigner struct {
	URI        string
	AuthZToken string
	Issuer     string
	KID        string
	Alg        cryptography.Algorithm
	Client     *http.Client
}

var _ Signer = (*RemoteSigner)(nil)

func (r *RemoteSigner) Algorithm() cryptography.Algorithm {
	return r.Alg
}

func (r *RemoteSigner) KeyID() string {
	return r.KID
}

func (r *RemoteSigner) Sign(ctx context.Context, payload []byte) (string, error) {
	return signCompact(payload, r.Alg, r.KID, &remoteOpaque{ctx: ctx, r: r})
}

type remoteOpaque struct {
	ctx context.Context
	r   *RemoteSigner
}

func (o *remoteOpaque) Public() *jose.JSONWebKey {
	return nil
}

func (o *remoteOpaque) Algs() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{jose.SignatureAlgorithm(o.r.Alg)}
}

func (o *remoteOpaque) SignPayload(signingInput []byte, _ jose.SignatureAlgorithm) ([]byte, error) {
	req := &RemoteSignRequest{
		Issuer:  o.r.Issuer,
		KeyID:   o.r.KID,
		Alg:     o.r.Alg,
		Payload: base64.RawURLEncoding.EncodeToString(signingInput),
	}

	resp := &RemoteSignResponse{}
	if err := postJSON(o.ctx, o.r.Client, o.r.URI, o.r.AuthZToken, req, resp); err != nil {
		return nil, err
	}

	sig, err := base64.RawURLEncoding.DecodeString(resp.Signature)
	if err != nil || len(sig) == 0 {
		return nil, errors.Wrap(ErrRemote, "signature is not base64url")
	}

	return sig, nil
}

// RemoteVerifyRequest is posted to an external verification endpoint
type RemoteVerifyRequest struct {
	JWT string `json:"jwt"`
}

type RemoteVerifyResponse struct {
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// RemoteVerifier delegates signature checks to an HTTP endpoint
type RemoteVerifier struct {
	URI        string
	AuthZToken string
	Client     *http.Client
}

func (r *RemoteVerifier) Verify(ctx context.Context, compact string) error {
	resp := &RemoteVerifyResponse{}
	if err := postJSON(ctx, r.Client, r.URI, r.AuthZToken, &RemoteVerifyRequest{JWT: compact}, resp); err != nil {
		return err
	}

	if !resp.Verified {
		if resp.Error != "" {
			return errors.Wrap(ErrInvalidSignature, resp.Error)
		}
		return ErrInvalidSignature
	}

	return nil
}

func postJSON(ctx context.Context, c *http.Client, uri string, token string, in interface{}, out interface{}) error {
	if c == nil {
		c = &http.Client{Timeout: defaultRemoteTimeout}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "marshalling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return errors.Wrap(ErrRemote, err.Error())
	}
	defer resp.Body.Close()

	rb, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return errors.Wrap(ErrRemote, err.Error())
	}

	if resp.StatusCode/100 != 2 {
		return errors.Wrapf(ErrRemote, "status %d: %s", resp.StatusCode, rb)
	}

	if err := json.Unmarshal(rb, out); err != nil {
		return errors.Wrap(ErrRemote, "decoding response")
	}

	return nil
}
