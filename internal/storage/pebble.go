package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/storage"
)

var (
	_ storage.Store = (*PebbleStore)(nil)
)

const (
	cacheSize = 1 << 20 * 16

	tableSep byte = ':'
)

type metadataKeyType byte

const (
	requestTPrefix metadataKeyType = iota + 1
	nonceFilterTPrefix
)

// PebbleStore persists request records and the issued nonce filter on disk
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time

	deleteMu sync.Mutex

	filterMu sync.Mutex
	filter   *storage.NonceFilter
}

func NewPebbleStore(ctx context.Context, repo string) (*PebbleStore, error) {
	db, err := metadataStore(ctx, repo)
	if err != nil {
		return nil, errors.Wrap(err, "opening request store")
	}

	return &PebbleStore{db: db, now: time.Now}, nil
}

func metadataStore(ctx context.Context, repo string) (*pebble.DB, error) {
	c := pebble.NewCache(cacheSize)
	tc := pebble.NewTableCache(c, 16, 100)
	defer tc.Unref()
	defer c.Unref()

	return pebble.Open(repo, &pebble.Options{Cache: c, TableCache: tc})
}

func (s *PebbleStore) Put(ctx context.Context, r *storage.RequestRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidRecord
	}

	k := typedKey(requestTPrefix, r.ID)

	_, done, err := s.db.Get(k)
	if err == nil {
		done.Close()
		return errors.Wrap(storage.ErrAlreadyExists, r.ID)
	} else if err != pebble.ErrNotFound {
		return errors.Wrap(err, "checking existing record")
	}

	b, err := r.Marshal()
	if err != nil {
		return err
	}

	if err := s.db.Set(k, b, &pebble.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "storing request record")
	}

	return nil
}

func (s *PebbleStore) Get(ctx context.Context, id string) (*storage.RequestRecord, error) {
	k := typedKey(requestTPrefix, id)

	d, done, err := s.db.Get(k)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting request record")
	}
	defer done.Close()

	r := &storage.RequestRecord{}
	if err := r.Unmarshal(d); err != nil {
		return nil, err
	}

	if r.Expired(s.now()) {
		if err := s.db.Delete(k, &pebble.WriteOptions{}); err != nil {
			logging.WithError(err).WithField("id", id).Warn("removing expired request")
		}
		return nil, storage.ErrNotFound
	}

	return r, nil
}

func (s *PebbleStore) Delete(ctx context.Context, id string) error {
	k := typedKey(requestTPrefix, id)

	s.deleteMu.Lock()
	defer s.deleteMu.Unlock()

	_, done, err := s.db.Get(k)
	if err != nil {
		if err == pebble.ErrNotFound {
			return storage.ErrNotFound
		}
		return errors.Wrap(err, "getting request record")
	}
	done.Close()

	if err := s.db.Delete(k, &pebble.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "deleting request record")
	}

	return nil
}

// Sweep removes every expired record and returns how many were removed
func (s *PebbleStore) Sweep(ctx context.Context) (int, error) {
	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{byte(requestTPrefix)},
		UpperBound: []byte{byte(requestTPrefix) + 1},
	})
	defer iter.Close()

	now := s.now()
	batch := s.db.NewBatch()
	defer batch.Close()

	n := 0

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		r := &storage.RequestRecord{}
		if err := r.Unmarshal(iter.Value()); err != nil {
			logging.WithError(err).WithField("key", string(iter.Key()[1:])).Warn("dropping unreadable request")
		} else if !r.Expired(now) {
			continue
		}

		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return 0, errors.Wrap(err, "batching delete")
		}
		n++
	}

	if n == 0 {
		return 0, nil
	}

	if err := batch.Commit(&pebble.WriteOptions{Sync: true}); err != nil {
		return 0, errors.Wrap(err, "committing sweep")
	}

	return n, nil
}

// NonceFilter returns the persisted nonce filter, creating one sized for
// expected nonces if none was saved
func (s *PebbleStore) NonceFilter(expected uint) (*storage.NonceFilter, error) {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()

	if s.filter != nil {
		return s.filter, nil
	}

	d, done, err := s.db.Get(typedKey(nonceFilterTPrefix))
	if err != nil {
		if err != pebble.ErrNotFound {
			return nil, errors.Wrap(err, "getting nonce filter")
		}
		s.filter = storage.NewNonceFilter(expected)
		return s.filter, nil
	}
	defer done.Close()

	f, err := storage.LoadNonceFilter(d)
	if err != nil {
		return nil, err
	}

	s.filter = f
	return f, nil
}

func (s *PebbleStore) saveFilter() error {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()

	if s.filter == nil {
		return nil
	}

	b, err := s.filter.Bytes()
	if err != nil {
		return errors.Wrap(err, "encoding nonce filter")
	}

	return s.db.Set(typedKey(nonceFilterTPrefix), b, &pebble.WriteOptions{Sync: true})
}

func (s *PebbleStore) Close() error {
	if err := s.saveFilter(); err != nil {
		logging.WithError(err).Error("saving nonce filter")
	}

	return s.db.Close()
}

func typedKey(kType metadataKeyType, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1 //add sep as well
	}

	k := make([]byte, 0, n)
	k = append(k, byte(kType))
	for i, p := range parts {
		if i > 0 {
			k = append(k, tableSep)
		}
		k = append(k, []byte(p)...)
	}

	return k
}
