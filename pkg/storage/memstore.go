package storage

import (
	"context"
	"time"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
)

var (
	_ Store = (*MemStore)(nil)
)

const DefaultMemStoreSize = 10000

// MemStore keeps records in an LRU cache; entries are evicted at their expiry
type MemStore struct {
	cache gcache.Cache
	now   func() time.Time
}

func NewMemStore(size int) *MemStore {
	if size <= 0 {
		size = DefaultMemStoreSize
	}

	return &MemStore{
		cache: gcache.New(size).LRU().Build(),
		now:   time.Now,
	}
}

func (m *MemStore) Put(_ context.Context, r *RequestRecord) error {
	if r == nil || r.ID == "" {
		return ErrInvalidRecord
	}

	if _, err := m.cache.Get(r.ID); err == nil {
		return errors.Wrap(ErrAlreadyExists, r.ID)
	}

	cp := *r

	if r.ExpiresAt.IsZero() {
		return m.cache.Set(r.ID, &cp)
	}

	ttl := r.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}

	return m.cache.SetWithExpire(r.ID, &cp, ttl)
}

func (m *MemStore) Get(_ context.Context, id string) (*RequestRecord, error) {
	v, err := m.cache.Get(id)
	if err != nil {
		if err == gcache.KeyNotFoundError {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "getting record")
	}

	r := *v.(*RequestRecord)

	if r.Expired(m.now()) {
		m.cache.Remove(id)
		return nil, ErrNotFound
	}

	return &r, nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	if !m.cache.Remove(id) {
		return ErrNotFound
	}
	return nil
}

func (m *MemStore) Close() error {
	m.cache.Purge()
	return nil
}
