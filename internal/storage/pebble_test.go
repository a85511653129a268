package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tcfw/siop/pkg/storage"
)

func newTestStore(t *testing.T) (*PebbleStore, string) {
	dir := t.TempDir()

	s, err := NewPebbleStore(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	return s, dir
}

func testRecord(id string, expires time.Time) *storage.RequestRecord {
	return &storage.RequestRecord{
		ID:          id,
		JWT:         "eyJhbGciOiJFUzI1NksifQ.e30.c2ln",
		Nonce:       "nonce-" + id,
		State:       "state-" + id,
		RedirectURI: "https://acme.com/hello",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		ExpiresAt:   expires.UTC().Truncate(time.Second),
	}
}

func TestPebbleStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	defer s.Close()

	r := testRecord("a", time.Now().Add(time.Hour))

	if err := s.Put(ctx, r); err != nil {
		t.Fatal(err)
	}

	assert.ErrorIs(t, s.Put(ctx, r), storage.ErrAlreadyExists)
	assert.ErrorIs(t, s.Put(ctx, nil), storage.ErrInvalidRecord)

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, r.JWT, got.JWT)
	assert.Equal(t, r.Nonce, got.Nonce)
	assert.True(t, r.ExpiresAt.Equal(got.ExpiresAt))

	assert.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), storage.ErrNotFound)

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPebbleStoreConcurrentDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	defer s.Close()

	if err := s.Put(ctx, testRecord("a", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Delete(ctx, "a"); err == nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
}

func TestPebbleStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	defer s.Close()

	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, testRecord(id, now.Add(time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Put(ctx, testRecord("d", now.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return now.Add(10 * time.Minute) }

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := s.Sweep(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Get(ctx, "d")
	assert.NoError(t, err)
}

func TestPebbleNonceFilterPersists(t *testing.T) {
	s, dir := newTestStore(t)

	f, err := s.NonceFilter(1000)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, f.Claim("n1"))

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewPebbleStore(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	f, err = s.NonceFilter(1000)
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, f.Claim("n1"))
	assert.True(t, f.Claim("n2"))
}

func TestTypedKey(t *testing.T) {
	assert.Equal(t, []byte{byte(requestTPrefix), 'a', ':', 'b'}, typedKey(requestTPrefix, "a", "b"))
	assert.Equal(t, []byte{byte(nonceFilterTPrefix)}, typedKey(nonceFilterTPrefix))
}
