package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

const DefaultUniversalResolverURL = "https://dev.uniresolver.io/1.0/identifiers/"

// UniversalResolver resolves any method through a DIF universal resolver
// style HTTP binding: GET <endpoint><did>.
type UniversalResolver struct {
	endpoint string
	token    string
	http     *httpFetcher
}

type UniversalOption func(*UniversalResolver)

// WithBearerToken authenticates calls to the resolver endpoint
func WithBearerToken(token string) UniversalOption {
	return func(u *UniversalResolver) {
		u.token = token
	}
}

// WithRetries retries transient fetch failures n times with backoff
func WithRetries(n int) UniversalOption {
	return func(u *UniversalResolver) {
		u.http.attempts = n + 1
	}
}

func NewUniversalResolver(endpoint string, c *http.Client, opts ...UniversalOption) *UniversalResolver {
	if endpoint == "" {
		endpoint = DefaultUniversalResolverURL
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	u := &UniversalResolver{endpoint: endpoint, http: newHTTPFetcher(c, 0)}
	for _, opt := range opts {
		opt(u)
	}

	return u
}

type resolutionResult struct {
	Document *w3cdid.Document `json:"didDocument"`
	Metadata struct {
		Deactivated bool `json:"deactivated"`
	} `json:"didDocumentMetadata"`
	ResolutionMetadata struct {
		Error string `json:"error"`
	} `json:"didResolutionMetadata"`
}

func (u *UniversalResolver) Resolve(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	h := http.Header{}
	h.Set("Accept", `application/ld+json;profile="https://w3id.org/did-resolution", application/did+ld+json, application/json`)
	if u.token != "" {
		h.Set("Authorization", "Bearer "+u.token)
	}

	body, err := u.http.get(ctx, u.endpoint+string(id.DID()), h)
	if err != nil {
		return nil, err
	}

	res := &resolutionResult{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, errors.Wrap(err, "decoding resolution result")
	}

	if res.ResolutionMetadata.Error != "" {
		if res.ResolutionMetadata.Error == ErrNotFound.Error() {
			return nil, ErrNotFound
		}
		return nil, errors.New(res.ResolutionMetadata.Error)
	}

	if res.Metadata.Deactivated {
		return nil, ErrDeactivated
	}

	if res.Document != nil {
		return res.Document, nil
	}

	doc := &w3cdid.Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, errors.Wrap(err, "decoding did document")
	}
	if doc.ID == "" {
		return nil, ErrNotFound
	}

	return doc, nil
}
