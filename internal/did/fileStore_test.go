package did

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tcfw/siop/pkg/did"
)

func TestNewFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siop", "identity.yaml")

	f, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	ed, err := did.GenerateEd25519Identity(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	k1, err := did.GenerateSecp256k1Identity()
	if err != nil {
		t.Fatal(err)
	}

	if err := f.Add(ed); err != nil {
		t.Fatal(err)
	}
	if err := f.Add(k1); err != nil {
		t.Fatal(err)
	}
	//duplicates are ignored
	if err := f.Add(k1); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	assert.Len(t, reopened.List(), 2)

	pid, _ := k1.PublicIdentity()
	got, err := reopened.Find(pid.ID.String())
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, k1.HexPrivateKey(), got.HexPrivateKey())

	_, err = reopened.Find("did:key:zunknown")
	assert.ErrorIs(t, err, did.ErrIdentityNotFound)
}

func TestSealedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")

	f, err := NewFileStore(path, WithPassphrase("correct horse"))
	if err != nil {
		t.Fatal(err)
	}

	ed, err := did.GenerateEd25519Identity(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.Add(ed); err != nil {
		t.Fatal(err)
	}

	assert.True(t, f.ids.Ids[0].Sealed)

	_, err = NewFileStore(path)
	assert.ErrorIs(t, err, ErrPassphraseRequired)

	_, err = NewFileStore(path, WithPassphrase("wrong"))
	assert.ErrorIs(t, err, ErrBadPassphrase)

	reopened, err := NewFileStore(path, WithPassphrase("correct horse"))
	if err != nil {
		t.Fatal(err)
	}

	ids := reopened.List()
	if assert.Len(t, ids, 1) {
		assert.Equal(t, ed.HexPrivateKey(), ids[0].HexPrivateKey())
	}
}
