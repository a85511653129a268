package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testRecord(id string, ttl time.Duration) *RequestRecord {
	now := time.Now()

	return &RequestRecord{
		ID:          id,
		JWT:         "eyJhbGciOiJFUzI1NksifQ.e30.c2ln",
		Nonce:       "qBrR7mqnY3Qr49dAZycPF8FzgE83m6H0c2l0bzP4xSg",
		State:       "b32f0087fc9816eb813fd11f",
		RedirectURI: "https://acme.com/hello",
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore(10)
	defer m.Close()

	r := testRecord("a", time.Minute)

	if err := m.Put(ctx, r); err != nil {
		t.Fatal(err)
	}

	assert.ErrorIs(t, m.Put(ctx, r), ErrAlreadyExists)
	assert.ErrorIs(t, m.Put(ctx, &RequestRecord{}), ErrInvalidRecord)

	got, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, r, got)

	assert.NoError(t, m.Delete(ctx, "a"))
	assert.ErrorIs(t, m.Delete(ctx, "a"), ErrNotFound)

	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore(10)

	now := time.Now()
	m.now = func() time.Time { return now }

	if err := m.Put(ctx, testRecord("a", time.Minute)); err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordMarshal(t *testing.T) {
	r := testRecord("a", time.Minute)

	b, err := r.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	got := &RequestRecord{}
	if err := got.Unmarshal(b); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, r.JWT, got.JWT)
	assert.True(t, r.ExpiresAt.Equal(got.ExpiresAt))
	assert.False(t, got.Expired(time.Now()))
	assert.True(t, got.Expired(r.ExpiresAt))
}

func TestContentID(t *testing.T) {
	a, err := testRecord("a", time.Minute).ContentID()
	assert.NoError(t, err)

	b, err := testRecord("b", time.Hour).ContentID()
	assert.NoError(t, err)

	other := testRecord("c", time.Minute)
	other.JWT = "x.y.z"
	c, err := other.ContentID()
	assert.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestNonceFilter(t *testing.T) {
	f := NewNonceFilter(1000)

	assert.True(t, f.Claim("one"))
	assert.False(t, f.Claim("one"))
	assert.True(t, f.Seen("one"))
	assert.False(t, f.Seen("two"))

	b, err := f.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadNonceFilter(b)
	if err != nil {
		t.Fatal(err)
	}

	assert.True(t, loaded.Seen("one"))
	assert.True(t, loaded.Claim("two"))
}
