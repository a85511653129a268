package cryptography

import (
	"crypto/ecdsa"
	"crypto/sha256"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

var ErrInvalidSignatureLength = errors.New("invalid signature length")

// IsSecp256k1 reports whether pub lies on the secp256k1 curve.
func IsSecp256k1(pub *ecdsa.PublicKey) bool {
	if pub == nil || pub.Curve == nil {
		return false
	}
	return pub.Curve.Params().P.Cmp(ethCrypto.S256().Params().P) == 0
}

func NewSecp256k1PrivateKey() (*ecdsa.PrivateKey, error) {
	pk, err := ethCrypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generating secp256k1 key")
	}

	return pk, nil
}

func Secp256k1PrivateKeyFromBytes(d []byte) (*ecdsa.PrivateKey, error) {
	pk, err := ethCrypto.ToECDSA(d)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshalling secp256k1 private key")
	}

	return pk, nil
}

// ParseSecp256k1PublicKey accepts compressed (33 bytes), uncompressed (65 bytes)
// and raw X||Y (64 bytes) encodings.
func ParseSecp256k1PublicKey(d []byte) (*ecdsa.PublicKey, error) {
	switch len(d) {
	case 33:
		pub, err := ethCrypto.DecompressPubkey(d)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing secp256k1 pub key")
		}
		return pub, nil
	case 64:
		d = append([]byte{0x04}, d...)
	}

	pub, err := ethCrypto.UnmarshalPubkey(d)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshalling secp256k1 pub key")
	}

	return pub, nil
}

func MarshalSecp256k1PublicKey(pub *ecdsa.PublicKey, compressed bool) []byte {
	if compressed {
		return ethCrypto.CompressPubkey(pub)
	}
	return ethCrypto.FromECDSAPub(pub)
}

// Secp256k1Address is the checksummed ethereum address controlled by pub.
func Secp256k1Address(pub *ecdsa.PublicKey) string {
	return ethCrypto.PubkeyToAddress(*pub).Hex()
}

// SignES256K signs the JWS signing input, returning the 64 byte R||S form.
func SignES256K(priv *ecdsa.PrivateKey, signingInput []byte) ([]byte, error) {
	h := sha256.Sum256(signingInput)

	sig, err := ethCrypto.Sign(h[:], priv)
	if err != nil {
		return nil, errors.Wrap(err, "signing")
	}

	return sig[:64], nil
}

func VerifyES256K(pub *ecdsa.PublicKey, signingInput []byte, sig []byte) (bool, error) {
	if len(sig) != 64 && len(sig) != 65 {
		return false, ErrInvalidSignatureLength
	}

	h := sha256.Sum256(signingInput)

	return ethCrypto.VerifySignature(
		ethCrypto.FromECDSAPub(pub),
		h[:],
		sig[:64],
	), nil
}

// RecoverES256KAddresses returns every address that could have produced sig.
// A 64 byte signature carries no recovery id so both candidates are returned.
func RecoverES256KAddresses(signingInput []byte, sig []byte) ([]string, error) {
	h := sha256.Sum256(signingInput)

	var candidates [][]byte

	switch len(sig) {
	case 64:
		for v := byte(0); v < 2; v++ {
			candidates = append(candidates, append(append([]byte{}, sig...), v))
		}
	case 65:
		s := append([]byte{}, sig...)
		if s[64] >= 27 {
			s[64] -= 27
		}
		candidates = append(candidates, s)
	default:
		return nil, ErrInvalidSignatureLength
	}

	addrs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		pub, err := ethCrypto.SigToPub(h[:], c)
		if err != nil {
			continue
		}
		addrs = append(addrs, Secp256k1Address(pub))
	}

	if len(addrs) == 0 {
		return nil, errors.New("no public key could be recovered from signature")
	}

	return addrs, nil
}
