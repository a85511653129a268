package resolver

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
	vmcrypto "github.com/tcfw/siop/pkg/did/w3cdid/cryptography"
)

var (
	ethrAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	ethrPubKeyPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{66}$`)

	ethrNetworks = map[string]int64{
		"":         1,
		"mainnet":  1,
		"ropsten":  3,
		"rinkeby":  4,
		"goerli":   5,
		"kovan":    42,
		"sepolia":  11155111,
		"rsk":      30,
		"polygon":  137,
		"mumbai":   80001,
		"optimism": 10,
	}
)

// EthrResolver builds the default did:ethr document for an identifier whose
// ERC1056 registry entry has not been changed: the address (or the address
// of the public key) is its own controller.
type EthrResolver struct {
	// Networks adds or overrides network name to chain id mappings
	Networks map[string]int64
}

func (e EthrResolver) Resolve(_ context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	if id.DID().Method() != "ethr" {
		return nil, errors.Wrapf(ErrUnknownMethod, "not a did:ethr: %s", id)
	}

	network, ident := "", id.DID().Id()
	if i := strings.LastIndex(ident, ":"); i >= 0 {
		network, ident = ident[:i], ident[i+1:]
	}

	chainID, err := e.chainID(network)
	if err != nil {
		return nil, err
	}

	did := string(id.DID())

	var (
		address string
		pubHex  string
	)

	switch {
	case ethrAddressPattern.MatchString(ident):
		address = common.HexToAddress(ident).Hex()
	case ethrPubKeyPattern.MatchString(ident):
		raw, _ := hex.DecodeString(ident[2:])
		pub, err := cryptography.ParseSecp256k1PublicKey(raw)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidDID, err.Error())
		}
		address = cryptography.Secp256k1Address(pub)
		pubHex = ident[2:]
	default:
		return nil, errors.Wrapf(ErrInvalidDID, "not an address or public key: %s", ident)
	}

	controller := vmcrypto.VerificationMethod{
		ID:                  did + "#controller",
		Type:                vmcrypto.EcdsaSecp256k1RecoveryMethod2020,
		Controller:          did,
		BlockchainAccountID: fmt.Sprintf("eip155:%d:%s", chainID, address),
	}

	doc := &w3cdid.Document{
		Context:            w3cdid.Context{w3cdid.ContextV1},
		ID:                 did,
		VerificationMethod: []vmcrypto.VerificationMethod{controller},
		Authentication:     []w3cdid.VerificationRelationship{{Reference: controller.ID}},
		AssertionMethod:    []w3cdid.VerificationRelationship{{Reference: controller.ID}},
	}

	if pubHex != "" {
		key := vmcrypto.VerificationMethod{
			ID:           did + "#controllerKey",
			Type:         vmcrypto.EcdsaSecp256k1VerificationKey2019,
			Controller:   did,
			PublicKeyHex: pubHex,
		}

		doc.VerificationMethod = append(doc.VerificationMethod, key)
		doc.Authentication = append(doc.Authentication, w3cdid.VerificationRelationship{Reference: key.ID})
		doc.AssertionMethod = append(doc.AssertionMethod, w3cdid.VerificationRelationship{Reference: key.ID})
	}

	return doc, nil
}

func (e EthrResolver) chainID(network string) (int64, error) {
	if id, ok := e.Networks[network]; ok {
		return id, nil
	}
	if id, ok := ethrNetworks[network]; ok {
		return id, nil
	}
	if strings.HasPrefix(network, "0x") {
		id, err := strconv.ParseInt(network[2:], 16, 64)
		if err == nil {
			return id, nil
		}
	}

	return 0, errors.Wrapf(ErrInvalidDID, "unknown ethr network %q", network)
}
