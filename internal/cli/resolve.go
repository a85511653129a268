package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tcfw/siop/pkg/did/w3cdid"
)

var (
	resolveCmd = &cobra.Command{
		Use:   "resolve [did]",
		Short: "Resolve a DID document",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
)

func runResolve(cmd *cobra.Command, args []string) error {
	id := w3cdid.URL(args[0])
	if err := id.Validate(); err != nil {
		return errors.Wrap(err, "invalid did")
	}

	reg, err := cfg.Resolver().Registry()
	if err != nil {
		return errors.Wrap(err, "building resolver")
	}

	doc, err := reg.Resolve(cmd.Context(), id)
	if err != nil {
		return errors.Wrap(err, "resolving")
	}

	return printJSON(cmd, doc)
}
