package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/siop/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:               "siop",
		Short:             "Self-issued OpenID provider tooling",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	cfg *config.Config
)

func Execute() error {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase verbosity")
	viper.BindPFlag(config.Cfg_verbose, rootCmd.PersistentFlags().Lookup("verbose"))
	rootCmd.PersistentFlags().StringP("identity", "i", "", "DID of the local identity to sign with. blank uses the first stored")
	viper.BindPFlag(config.Cfg_identity_name, rootCmd.PersistentFlags().Lookup("identity"))
	rootCmd.PersistentFlags().String("passphrase", "", "passphrase sealing the identity file")
	viper.BindPFlag(config.Cfg_identity_passphrase, rootCmd.PersistentFlags().Lookup("passphrase"))

	regCommands()

	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.GetConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	cfg = c
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling output")
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
	return err
}

func expandPath(p string) string {
	return os.ExpandEnv(p)
}
