package cryptography

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
	"github.com/pkg/errors"
)

// Multicodec key prefixes used by did:key and Multikey verification methods.
const (
	CodecEd25519Pub   uint64 = 0xed
	CodecSecp256k1Pub uint64 = 0xe7
	CodecP256Pub      uint64 = 0x1200
)

var ErrUnsupportedCodec = errors.New("unsupported multicodec")

func DecodeMultibase(mb string) ([]byte, error) {
	_, d, err := multibase.Decode(mb)
	if err != nil {
		return nil, errors.Wrap(err, "decoding multibase")
	}
	return d, nil
}

// EncodeMultikey encodes publicKey as a base58btc multibase string with its
// multicodec prefix, as used in did:key identifiers.
func EncodeMultikey(publicKey crypto.PublicKey) (string, error) {
	var (
		codec uint64
		raw   []byte
	)

	switch t := publicKey.(type) {
	case ed25519.PublicKey:
		codec, raw = CodecEd25519Pub, []byte(t)
	case *ecdsa.PublicKey:
		switch {
		case IsSecp256k1(t):
			codec, raw = CodecSecp256k1Pub, MarshalSecp256k1PublicKey(t, true)
		case t.Curve == elliptic.P256():
			codec, raw = CodecP256Pub, elliptic.MarshalCompressed(t.Curve, t.X, t.Y)
		default:
			return "", errors.Errorf("unsupported curve: %s", t.Curve.Params().Name)
		}
	default:
		return "", errors.Errorf("unsupported pk type: %T", t)
	}

	return multibase.Encode(multibase.Base58BTC, append(varint.ToUvarint(codec), raw...))
}

// DecodeMultikey is the inverse of EncodeMultikey.
func DecodeMultikey(mb string) (crypto.PublicKey, uint64, error) {
	d, err := DecodeMultibase(mb)
	if err != nil {
		return nil, 0, err
	}

	codec, n, err := varint.FromUvarint(d)
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading multicodec prefix")
	}

	pub, err := publicKeyFromCodec(codec, d[n:])
	if err != nil {
		return nil, 0, err
	}

	return pub, codec, nil
}

func publicKeyFromCodec(codec uint64, raw []byte) (crypto.PublicKey, error) {
	switch codec {
	case CodecEd25519Pub:
		if len(raw) != ed25519.PublicKeySize {
			return nil, errors.Errorf("invalid ed25519 key length %d", len(raw))
		}
		return ed25519.PublicKey(raw), nil
	case CodecSecp256k1Pub:
		return ParseSecp256k1PublicKey(raw)
	case CodecP256Pub:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), raw)
		if x == nil {
			return nil, errors.New("invalid compressed P-256 key")
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	}

	return nil, errors.Wrapf(ErrUnsupportedCodec, "0x%x", codec)
}

// AlgorithmForCodec maps a multicodec key prefix onto its signing algorithm.
func AlgorithmForCodec(codec uint64) (Algorithm, error) {
	switch codec {
	case CodecEd25519Pub:
		return EdDSA, nil
	case CodecSecp256k1Pub:
		return ES256K, nil
	case CodecP256Pub:
		return ES256, nil
	}

	return "", errors.Wrapf(ErrUnsupportedCodec, "0x%x", codec)
}
