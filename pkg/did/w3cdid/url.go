package w3cdid

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidDID = errors.New("invalid did")

	didPattern = regexp.MustCompile(`^did:[a-z0-9]+:(?:[a-zA-Z0-9._%-]*:)*[a-zA-Z0-9._%-]+$`)
)

// URL is a DID or DID URL, e.g. did:ethr:0xabc#controller
type URL string

func (u URL) Scheme() string {
	return "did"
}

func (u URL) parse() *url.URL {
	uri, err := url.Parse(string(u))
	if err != nil {
		return &url.URL{}
	}
	return uri
}

// Method is empty when u does not parse as a URI.
func (u URL) Method() string {
	p := strings.SplitN(u.parse().Opaque, ":", 2)
	return p[0]
}

func (u URL) Id() string {
	p := strings.SplitN(u.parse().Opaque, ":", 2)
	if len(p) < 2 {
		return ""
	}

	return p[1]
}

func (u URL) Query() string {
	return u.parse().RawQuery
}

func (u URL) Fragment() string {
	return u.parse().Fragment
}

// DID strips any path, query or fragment, leaving the bare DID
func (u URL) DID() URL {
	s := string(u)
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return URL(s)
}

// Validate checks the bare DID against the did-core syntax.
func (u URL) Validate() error {
	if !didPattern.MatchString(string(u.DID())) {
		return errors.Wrapf(ErrInvalidDID, "%q", string(u))
	}
	return nil
}

// WithFragment resolves a fragment such as "#keys-1" or "keys-1" against the DID.
func (u URL) WithFragment(frag string) URL {
	return URL(string(u.DID()) + "#" + strings.TrimPrefix(frag, "#"))
}

func (u URL) String() string {
	return string(u)
}

// MethodName normalises "ethr", "did:ethr" and "did:ethr:0xabc" to "ethr".
func MethodName(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "did:")
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return s
}
