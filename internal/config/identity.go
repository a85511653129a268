package config

import (
	"github.com/spf13/viper"
)

type Identity struct {
	File       string `mapstructure:"file"`
	Name       string `mapstructure:"name"`
	Passphrase string `mapstructure:"passphrase"`
}

const (
	Cfg_identity_file       = "identity.file"
	Cfg_identity_name       = "identity.name"
	Cfg_identity_passphrase = "identity.passphrase"
)

var (
	identityDefaults = map[string]interface{}{
		Cfg_identity_file:       "$HOME/.siop/identity.yaml",
		Cfg_identity_name:       "",
		Cfg_identity_passphrase: "",
	}
)

func init() {
	for k, v := range identityDefaults {
		viper.SetDefault(k, v)
	}
}
