package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tcfw/siop/pkg/did/resolver"
)

type Resolver struct {
	DidMethods     []string      `mapstructure:"didMethods"`
	UniversalURL   string        `mapstructure:"universalURL"`
	UniversalToken string        `mapstructure:"universalToken"`
	DNSServer      string        `mapstructure:"dnsServer"`
	Retries        int           `mapstructure:"retries"`
	CacheSize      int           `mapstructure:"cacheSize"`
	CacheTTL       time.Duration `mapstructure:"cacheTTL"`
}

const (
	Cfg_resolver_didMethods     = "resolver.didMethods"
	Cfg_resolver_universalURL   = "resolver.universalURL"
	Cfg_resolver_universalToken = "resolver.universalToken"
	Cfg_resolver_dnsServer      = "resolver.dnsServer"
	Cfg_resolver_retries        = "resolver.retries"
	Cfg_resolver_cacheSize      = "resolver.cacheSize"
	Cfg_resolver_cacheTTL       = "resolver.cacheTTL"
)

var (
	resolverDefaults = map[string]interface{}{
		Cfg_resolver_didMethods:     resolver.DefaultMethods,
		Cfg_resolver_universalURL:   resolver.DefaultUniversalResolverURL,
		Cfg_resolver_universalToken: "",
		Cfg_resolver_dnsServer:      "",
		Cfg_resolver_retries:        0,
		Cfg_resolver_cacheSize:      0,
		Cfg_resolver_cacheTTL:       5 * time.Minute,
	}
)

func init() {
	for k, v := range resolverDefaults {
		viper.SetDefault(k, v)
	}
}

// Options converts the config into registry options
func (r *Resolver) Options() []resolver.DefaultsOption {
	opts := []resolver.DefaultsOption{
		resolver.WithUniversalURL(r.UniversalURL),
		resolver.WithUniversalToken(r.UniversalToken),
		resolver.WithDNSServer(r.DNSServer),
		resolver.WithFetchRetries(r.Retries),
	}

	if r.CacheSize > 0 {
		opts = append(opts, resolver.WithCache(r.CacheSize, r.CacheTTL))
	}

	return opts
}

func (r *Resolver) Registry() (*resolver.Registry, error) {
	return resolver.ForMethods(r.DidMethods, r.Options()...)
}
