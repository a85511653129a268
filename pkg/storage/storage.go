// Package storage keeps the request objects an RP serves by reference until
// the matching response arrives or they expire.
package storage

import (
	"context"
	"time"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// RequestRecord is a signed request object and the values its response must echo
type RequestRecord struct {
	ID          string    `msgpack:"i"`
	JWT         string    `msgpack:"j"`
	Nonce       string    `msgpack:"n"`
	State       string    `msgpack:"s"`
	RedirectURI string    `msgpack:"r"`
	CreatedAt   time.Time `msgpack:"c"`
	ExpiresAt   time.Time `msgpack:"e"`
}

// Expired reports whether the record can no longer be answered at now
func (r *RequestRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// ContentID is the multihash of the request object, used as its ETag
func (r *RequestRecord) ContentID() (string, error) {
	h, err := multihash.Sum([]byte(r.JWT), multihash.SHA3_256, multihash.DefaultLengths[multihash.SHA3_256])
	if err != nil {
		return "", errors.Wrap(err, "hashing request object")
	}

	return base58.Encode(h), nil
}

func (r *RequestRecord) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling request record")
	}

	return b, nil
}

func (r *RequestRecord) Unmarshal(b []byte) error {
	if err := msgpack.Unmarshal(b, r); err != nil {
		return errors.Wrap(err, "unmarshalling request record")
	}

	return nil
}

// Store holds request records by id
type Store interface {
	Put(ctx context.Context, r *RequestRecord) error
	Get(ctx context.Context, id string) (*RequestRecord, error)
	// Delete returns ErrNotFound when the record is absent. Of concurrent
	// deletes of one record exactly one returns nil.
	Delete(ctx context.Context, id string) error
	Close() error
}
