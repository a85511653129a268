package did

import (
	"crypto"

	"github.com/tcfw/siop/pkg/cryptography"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

type PublicIdentity struct {
	ID        w3cdid.URL
	KID       w3cdid.URL
	Algorithm cryptography.Algorithm
	PublicKey crypto.PublicKey
}

// JWK of the identity's public key, as carried in sub_jwk
func (p *PublicIdentity) JWK() (map[string]interface{}, error) {
	return cryptography.PublicJWK(p.PublicKey)
}
