package cli

import (
	"crypto/rand"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	idstore "github.com/tcfw/siop/internal/did"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/siop"
)

var (
	identityCmd = &cobra.Command{
		Use:   "identity",
		Short: "Manage local identities",
	}

	identity_newCmd = &cobra.Command{
		Use:   "new",
		Short: "Generate a new identity",
		RunE:  runIdentityNew,
	}

	identity_listCmd = &cobra.Command{
		Use:   "list",
		Short: "List local identities",
		RunE:  runIdentityList,
	}
)

type identityOutput struct {
	DID       string `json:"did"`
	KID       string `json:"kid"`
	Algorithm string `json:"alg"`
}

func init() {
	identity_newCmd.Flags().StringP("type", "t", "secp256k1", "key type: secp256k1 (did:ethr) or ed25519 (did:key)")
}

func openIdentityStore() (*idstore.FileStore, error) {
	return idstore.NewFileStore(
		expandPath(cfg.Identity().File),
		idstore.WithPassphrase(cfg.Identity().Passphrase),
	)
}

func runIdentityNew(cmd *cobra.Command, args []string) error {
	store, err := openIdentityStore()
	if err != nil {
		return errors.Wrap(err, "opening identity store")
	}

	t, _ := cmd.Flags().GetString("type")

	var id did.PrivateIdentity

	switch t {
	case "secp256k1":
		id, err = did.GenerateSecp256k1Identity()
	case "ed25519":
		id, err = did.GenerateEd25519Identity(rand.Reader)
	default:
		return errors.Errorf("unknown key type %s", t)
	}
	if err != nil {
		return errors.Wrap(err, "generating identity")
	}

	if err := store.Add(id); err != nil {
		return errors.Wrap(err, "storing identity")
	}

	return printIdentity(cmd, id)
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	store, err := openIdentityStore()
	if err != nil {
		return errors.Wrap(err, "opening identity store")
	}

	out := []identityOutput{}

	for _, id := range store.List() {
		pub, err := id.PublicIdentity()
		if err != nil {
			return err
		}
		out = append(out, identityOutput{DID: pub.ID.String(), KID: pub.KID.String(), Algorithm: string(pub.Algorithm)})
	}

	return printJSON(cmd, out)
}

func printIdentity(cmd *cobra.Command, id did.PrivateIdentity) error {
	pub, err := id.PublicIdentity()
	if err != nil {
		return err
	}

	return printJSON(cmd, identityOutput{DID: pub.ID.String(), KID: pub.KID.String(), Algorithm: string(pub.Algorithm)})
}

// signingIdentity returns the configured identity, or the first one stored
func signingIdentity() (siop.InternalSignature, error) {
	store, err := openIdentityStore()
	if err != nil {
		return siop.InternalSignature{}, errors.Wrap(err, "opening identity store")
	}

	var id did.PrivateIdentity

	if name := cfg.Identity().Name; name != "" {
		id, err = store.Find(name)
		if err != nil {
			return siop.InternalSignature{}, errors.Wrap(err, name)
		}
	} else {
		ids := store.List()
		if len(ids) == 0 {
			return siop.InternalSignature{}, did.ErrIdentityNotFound
		}
		id = ids[0]
	}

	pub, err := id.PublicIdentity()
	if err != nil {
		return siop.InternalSignature{}, err
	}

	return siop.InternalSignature{
		HexPrivateKey: id.HexPrivateKey(),
		DID:           pub.ID.String(),
		KID:           pub.KID.String(),
		Alg:           pub.Algorithm,
	}, nil
}
