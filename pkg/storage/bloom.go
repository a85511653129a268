package storage

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/pkg/errors"
)

const (
	falsePositive = 0.01

	DefaultExpectedNonces = 100000
)

// NonceFilter remembers issued nonces. A false positive only costs a
// regenerated nonce, never a reused one.
type NonceFilter struct {
	mu sync.Mutex
	b  *bloom.BloomFilter
}

func NewNonceFilter(expected uint) *NonceFilter {
	if expected == 0 {
		expected = DefaultExpectedNonces
	}

	return &NonceFilter{b: bloom.NewWithEstimates(expected, falsePositive)}
}

// LoadNonceFilter restores a filter saved with Bytes
func LoadNonceFilter(d []byte) (*NonceFilter, error) {
	b := &bloom.BloomFilter{}
	if err := b.GobDecode(d); err != nil {
		return nil, errors.Wrap(err, "decoding nonce filter")
	}

	return &NonceFilter{b: b}, nil
}

// Claim records nonce and reports false when it may have been issued before
func (f *NonceFilter) Claim(nonce string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.b.TestAndAdd([]byte(nonce))
}

func (f *NonceFilter) Seen(nonce string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.b.Test([]byte(nonce))
}

func (f *NonceFilter) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.b.GobEncode()
}
