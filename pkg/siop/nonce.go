package siop

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

const (
	nonceSize = 32
	stateSize = 12
)

// NewNonce returns 32 random bytes, base64url encoded
func NewNonce() string {
	return base64.RawURLEncoding.EncodeToString(randomBytes(nonceSize))
}

// NewState returns 12 random bytes, hex encoded
func NewState() string {
	return hex.EncodeToString(randomBytes(stateSize))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
