package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

const (
	defaultWebPath = "/.well-known/did.json"
	webDIDDocPath  = "/did.json"
)

// WebResolver fetches did:web documents over https.
type WebResolver struct {
	http *httpFetcher

	// Insecure resolves over plain http, for testing
	Insecure bool
}

// NewWebResolver fetches with c, retrying transient failures retries times
func NewWebResolver(c *http.Client, retries int) *WebResolver {
	return &WebResolver{http: newHTTPFetcher(c, retries)}
}

func (w *WebResolver) Resolve(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	address, host, err := w.parse(id.DID())
	if err != nil {
		return nil, err
	}

	body, err := w.http.get(ctx, address, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching did:web document from %s", host)
	}

	doc := &w3cdid.Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, errors.Wrap(err, "decoding did:web document")
	}

	if doc.ID != string(id.DID()) {
		return nil, errors.Errorf("did:web document id %q does not match %q", doc.ID, id.DID())
	}

	return doc, nil
}

// parse maps did:web:example.com:user:alice to
// https://example.com/user/alice/did.json and did:web:example.com to
// https://example.com/.well-known/did.json
func (w *WebResolver) parse(id w3cdid.URL) (string, string, error) {
	if id.DID().Method() != "web" {
		return "", "", errors.Wrapf(ErrUnknownMethod, "not a did:web: %s", id)
	}

	parts := strings.Split(id.DID().Id(), ":")
	if len(parts) == 0 || parts[0] == "" {
		return "", "", errors.Wrapf(ErrInvalidDID, "missing host: %s", id)
	}

	for i, p := range parts {
		u, err := url.QueryUnescape(p)
		if err != nil {
			return "", "", errors.Wrapf(ErrInvalidDID, "unescaping %q", p)
		}
		parts[i] = u
	}

	scheme := "https"
	if w.Insecure {
		scheme = "http"
	}

	host := parts[0]

	if len(parts) == 1 {
		return fmt.Sprintf("%s://%s%s", scheme, host, defaultWebPath), host, nil
	}

	return fmt.Sprintf("%s://%s/%s%s", scheme, host, strings.Join(parts[1:], "/"), webDIDDocPath), host, nil
}
