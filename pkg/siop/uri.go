package siop

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/errs"
)

const maxRequestObjectSize = 1 << 20

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes like the JavaScript function of the same name,
// which is what wallets decoding openid:// URIs expect.
func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// orderedParams keeps query parameters in insertion order
type orderedParams struct {
	keys   []string
	values map[string]string
}

func (p *orderedParams) add(k, v string) {
	if p.values == nil {
		p.values = map[string]string{}
	}
	if _, ok := p.values[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.values[k] = v
}

func (p *orderedParams) encode() string {
	parts := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		parts = append(parts, k+"="+encodeURIComponent(p.values[k]))
	}
	return strings.Join(parts, "&")
}

func marshalCompact(v interface{}) (string, error) {
	buf := &bytes.Buffer{}

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// URIRequestParams are the decoded query parameters of a request URI
type URIRequestParams struct {
	ResponseType    ResponseType
	Scope           Scope
	ClientID        string
	RedirectURI     string
	Iss             string
	ResponseMode    ResponseMode
	ResponseContext ResponseContext
	Nonce           string
	State           string
	Registration    *RPRegistrationMetadataPayload
	RegistrationURI string
	Claims          *ClaimPayload
	Request         string
	RequestURI      string
}

// ParseURI decodes an openid:// authentication request URI.
func ParseURI(uri string) (*URIRequestParams, error) {
	i := strings.Index(uri, "?")
	if i < 0 {
		return nil, errs.New(errs.BadParams, "request uri has no query")
	}

	q, err := url.ParseQuery(uri[i+1:])
	if err != nil {
		return nil, errs.Wrap(err, errs.BadParams, "parsing request uri")
	}

	p := &URIRequestParams{
		ResponseType:    ResponseType(q.Get("response_type")),
		Scope:           Scope(q.Get("scope")),
		ClientID:        q.Get("client_id"),
		RedirectURI:     q.Get("redirect_uri"),
		Iss:             q.Get("iss"),
		ResponseMode:    ResponseMode(q.Get("response_mode")),
		ResponseContext: ResponseContext(q.Get("response_context")),
		Nonce:           q.Get("nonce"),
		State:           q.Get("state"),
		RegistrationURI: q.Get("registration_uri"),
		Request:         q.Get("request"),
		RequestURI:      q.Get("request_uri"),
	}

	if reg := q.Get("registration"); reg != "" {
		p.Registration = &RPRegistrationMetadataPayload{}
		if err := json.Unmarshal([]byte(reg), p.Registration); err != nil {
			return nil, errs.Wrap(err, errs.BadParams, "decoding registration")
		}
	}

	if claims := q.Get("claims"); claims != "" {
		p.Claims = &ClaimPayload{}
		if err := json.Unmarshal([]byte(claims), p.Claims); err != nil {
			return nil, errs.Wrap(err, errs.BadParams, "decoding claims")
		}
	}

	if p.Request == "" && p.RequestURI == "" {
		return nil, errs.New(errs.BadParams, "request uri carries neither request nor request_uri")
	}
	if p.Request != "" && p.RequestURI != "" {
		return nil, errs.New(errs.BadParams, "request uri carries both request and request_uri")
	}

	return p, nil
}

// RequestObjectFetcher dereferences a request_uri
type RequestObjectFetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// HTTPRequestObjectFetcher GETs request objects served as application/jwt
type HTTPRequestObjectFetcher struct {
	Client *http.Client
}

func (f *HTTPRequestObjectFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	c := f.Client
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", errs.Wrap(err, errs.BadParams, "request_uri")
	}
	req.Header.Set("Accept", "application/jwt")

	resp, err := c.Do(req)
	if err != nil {
		return "", errs.Wrap(err, errs.BadParams, "fetching request object")
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxRequestObjectSize))
	if err != nil {
		return "", errs.Wrap(err, errs.BadParams, "reading request object")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errs.Wrap(errors.Errorf("status %d", resp.StatusCode), errs.BadParams, "fetching request object")
	}

	return strings.TrimSpace(string(b)), nil
}

// RequestObject returns the inline request or fetches it from request_uri
func (p *URIRequestParams) RequestObject(ctx context.Context, fetcher RequestObjectFetcher) (string, error) {
	if p.Request != "" {
		return p.Request, nil
	}

	if fetcher == nil {
		fetcher = &HTTPRequestObjectFetcher{}
	}

	return fetcher.Fetch(ctx, p.RequestURI)
}
