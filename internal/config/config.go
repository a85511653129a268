package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tcfw/siop/internal/utils/logging"
)

const (
	Cfg_verbose = "verbose"
)

var (
	defaults = map[string]interface{}{
		Cfg_verbose: false,
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("siop")
	viper.AddConfigPath("/etc/siop/")
	viper.AddConfigPath("$HOME/.siop")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("SIOP")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
			logging.Entry().Debug("no config found")
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	if viper.GetBool(Cfg_verbose) {
		logging.SetLevel(logrus.DebugLevel)
		logging.Entry().WithField("level", "debug").Debug("setting log level")
	}

	c := &Config{}

	if err := decode(c); err != nil {
		return nil, err
	}

	if err := c.rp.validate(); err != nil {
		return nil, errors.Wrap(err, "rp config")
	}

	return c, nil
}

// decode reads every setting into c, converting durations and comma
// separated lists given as env values
func decode(c *Config) error {
	s := &settings{}

	err := viper.Unmarshal(s, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return errors.Wrap(err, "decoding config")
	}

	c.resolver = s.Resolver
	c.identity = s.Identity
	c.rp = s.RP

	return nil
}

type settings struct {
	Resolver Resolver `mapstructure:"resolver"`
	Identity Identity `mapstructure:"identity"`
	RP       RP       `mapstructure:"rp"`
}

type Config struct {
	resolver Resolver
	identity Identity
	rp       RP
}

func (c *Config) Resolver() *Resolver {
	return &c.resolver
}

func (c *Config) Identity() *Identity {
	return &c.identity
}

func (c *Config) RP() *RP {
	return &c.rp
}
