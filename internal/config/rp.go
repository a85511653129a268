package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StoreMemory = "memory"
	StorePebble = "pebble"
)

type RP struct {
	Listen           string        `mapstructure:"listen"`
	BaseURL          string        `mapstructure:"baseURL"`
	RedirectURI      string        `mapstructure:"redirectURI"`
	Store            string        `mapstructure:"store"`
	StorePath        string        `mapstructure:"storePath"`
	RequestTTL       time.Duration `mapstructure:"requestTTL"`
	ExpectedRequests uint          `mapstructure:"expectedRequests"`
}

const (
	Cfg_rp_listen           = "rp.listen"
	Cfg_rp_baseURL          = "rp.baseURL"
	Cfg_rp_redirectURI      = "rp.redirectURI"
	Cfg_rp_store            = "rp.store"
	Cfg_rp_storePath        = "rp.storePath"
	Cfg_rp_requestTTL       = "rp.requestTTL"
	Cfg_rp_expectedRequests = "rp.expectedRequests"
)

var (
	rpDefaults = map[string]interface{}{
		Cfg_rp_listen:           ":8080",
		Cfg_rp_baseURL:          "http://localhost:8080",
		Cfg_rp_redirectURI:      "http://localhost:8080/siop/callback",
		Cfg_rp_store:            StoreMemory,
		Cfg_rp_storePath:        "$HOME/.siop/requests",
		Cfg_rp_requestTTL:       10 * time.Minute,
		Cfg_rp_expectedRequests: 100000,
	}
)

func init() {
	for k, v := range rpDefaults {
		viper.SetDefault(k, v)
	}
}

func (r *RP) validate() error {
	switch r.Store {
	case StoreMemory, StorePebble:
	default:
		return errors.Errorf("unknown request store %q", r.Store)
	}

	if r.RequestTTL <= 0 {
		return errors.New("request ttl must be positive")
	}

	return nil
}
