package resolver

import (
	"net/http"
	"time"

	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	"github.com/tcfw/siop/pkg/errs"
)

// DefaultMethods are resolved when no method list is configured
var DefaultMethods = []string{"ethr", "key", "web"}

type defaultsConfig struct {
	universalURL string
	token        string
	client       *http.Client
	dnsServer    string
	retries      int
	cacheSize    int
	cacheTTL     time.Duration
}

type DefaultsOption func(*defaultsConfig)

func WithUniversalURL(u string) DefaultsOption {
	return func(c *defaultsConfig) { c.universalURL = u }
}

func WithUniversalToken(token string) DefaultsOption {
	return func(c *defaultsConfig) { c.token = token }
}

func WithHTTPClient(hc *http.Client) DefaultsOption {
	return func(c *defaultsConfig) { c.client = hc }
}

func WithDNSServer(server string) DefaultsOption {
	return func(c *defaultsConfig) { c.dnsServer = server }
}

// WithFetchRetries enables backoff retries in the http based resolvers
func WithFetchRetries(n int) DefaultsOption {
	return func(c *defaultsConfig) { c.retries = n }
}

// WithCache wraps every method resolver in an LRU cache
func WithCache(size int, ttl time.Duration) DefaultsOption {
	return func(c *defaultsConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

// ForMethods builds a Registry for the given DID methods. key and ethr are
// resolved locally, web over https, dns through DNS URI records and any other
// method through the universal resolver.
func ForMethods(methods []string, opts ...DefaultsOption) (*Registry, error) {
	cfg := &defaultsConfig{universalURL: DefaultUniversalResolverURL}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(methods) == 0 {
		return nil, errs.New(errs.BadParams, "no did methods to resolve")
	}

	reg, err := NewRegistry()
	if err != nil {
		return nil, err
	}

	var uni *UniversalResolver

	for _, m := range methods {
		m = w3cdid.MethodName(m)

		var r did.Resolver

		switch m {
		case "key":
			r = KeyResolver{}
		case "ethr":
			r = EthrResolver{}
		case "web":
			r = NewWebResolver(cfg.client, cfg.retries)
		case "dns":
			r = NewDNSResolver(cfg.dnsServer, reg)
		default:
			if uni == nil {
				uni = NewUniversalResolver(cfg.universalURL, cfg.client, WithBearerToken(cfg.token), WithRetries(cfg.retries))
			}
			r = uni
		}

		if cfg.cacheSize > 0 {
			r = NewCache(r, cfg.cacheSize, cfg.cacheTTL)
		}

		if err := WithMethod(m, r)(reg); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// New mirrors the resolution options of the SIOP builders: the override
// resolver wins, otherwise a registry is built for methods.
func New(override did.Resolver, methods []string, opts ...DefaultsOption) (did.Resolver, error) {
	if override != nil {
		return NewRegistry(WithOverride(override))
	}

	if len(methods) == 0 {
		return nil, errs.New(errs.BadParams, "resolver or did methods required")
	}

	return ForMethods(methods, opts...)
}
