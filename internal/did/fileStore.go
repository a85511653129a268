package did

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
	"gopkg.in/yaml.v3"

	"github.com/tcfw/siop/pkg/did"
)

const (
	typeEd25519   = "ed25519"
	typeSecp256k1 = "secp256k1"

	saltLen  = 16
	nonceLen = 24
	keyLen   = 32
)

var (
	ErrPassphraseRequired = errors.New("identity file is sealed and no passphrase was given")
	ErrBadPassphrase      = errors.New("unable to open sealed identity")
)

type IdentityFileStore struct {
	Ids []IdentityFileStoreId `yaml:"ids"`
}

type IdentityFileStoreId struct {
	Type   string `yaml:"type"`
	Data   string `yaml:"data"`
	Sealed bool   `yaml:"sealed,omitempty"`
}

var _ did.IdentityStore = (*FileStore)(nil)

// FileStore keeps private identities in a yaml file. When a passphrase is
// set, new keys are sealed with a scrypt derived secretbox key.
type FileStore struct {
	path       string
	passphrase []byte
	ids        IdentityFileStore
	idx        map[string]did.PrivateIdentity

	mu sync.Mutex
}

type FileStoreOption func(*FileStore)

func WithPassphrase(p string) FileStoreOption {
	return func(fs *FileStore) {
		if p != "" {
			fs.passphrase = []byte(p)
		}
	}
}

func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	f := &FileStore{path: path}

	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "creating identity dir")
	}

	if err := f.read(); err != nil {
		return nil, err
	}

	return f, nil
}

func (fs *FileStore) read() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return errors.Wrap(err, "opening identity file for read")
	}
	defer f.Close()

	d, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading identity file")
	}

	if err := yaml.Unmarshal(d, &fs.ids); err != nil {
		return errors.Wrap(err, "unmarshalling identity data")
	}

	return fs.buildIdx()
}

func (fs *FileStore) buildIdx() error {
	//assumes locked fs.mu

	fs.idx = make(map[string]did.PrivateIdentity, len(fs.ids.Ids))

	for _, fid := range fs.ids.Ids {
		id, err := fs.decodeType(fid)
		if err != nil {
			return errors.Wrap(err, "decoding id")
		}

		pid, err := id.PublicIdentity()
		if err != nil {
			return errors.Wrap(err, "getting public id from private")
		}

		fs.idx[pid.ID.String()] = id
	}

	return nil
}

func (fs *FileStore) decodeType(fid IdentityFileStoreId) (did.PrivateIdentity, error) {
	raw, err := base64.StdEncoding.DecodeString(fid.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding b64 identity data")
	}

	if fid.Sealed {
		raw, err = fs.open(raw)
		if err != nil {
			return nil, err
		}
	}

	switch fid.Type {
	case typeEd25519:
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("ed25519 key must be %d bytes", ed25519.PrivateKeySize)
		}
		return did.NewEd25519Identity(raw), nil
	case typeSecp256k1:
		return did.NewSecp256k1Identity(raw)
	default:
		return nil, fmt.Errorf("unknown key type %s", fid.Type)
	}
}

func (fs *FileStore) seal(raw []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "generating salt")
	}

	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}

	key, err := fs.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	out := append(salt, nonce[:]...)
	return secretbox.Seal(out, raw, &nonce, key), nil
}

func (fs *FileStore) open(sealed []byte) ([]byte, error) {
	if fs.passphrase == nil {
		return nil, ErrPassphraseRequired
	}

	if len(sealed) < saltLen+nonceLen+secretbox.Overhead {
		return nil, ErrBadPassphrase
	}

	var nonce [nonceLen]byte
	copy(nonce[:], sealed[saltLen:saltLen+nonceLen])

	key, err := fs.deriveKey(sealed[:saltLen])
	if err != nil {
		return nil, err
	}

	raw, ok := secretbox.Open(nil, sealed[saltLen+nonceLen:], &nonce, key)
	if !ok {
		return nil, ErrBadPassphrase
	}

	return raw, nil
}

func (fs *FileStore) deriveKey(salt []byte) (*[keyLen]byte, error) {
	k, err := scrypt.Key(fs.passphrase, salt, 1<<15, 8, 1, keyLen)
	if err != nil {
		return nil, errors.Wrap(err, "deriving key")
	}

	var key [keyLen]byte
	copy(key[:], k)

	return &key, nil
}

func (fs *FileStore) Add(id did.PrivateIdentity) error {
	pid, err := id.PublicIdentity()
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	//check if in idx
	if _, ok := fs.idx[pid.ID.String()]; ok {
		return nil
	}

	var f IdentityFileStoreId
	var raw []byte

	switch t := id.(type) {
	case *did.Ed25519Identity:
		f.Type = typeEd25519
		raw = []byte(t.PrivateKey().(ed25519.PrivateKey))
	case *did.Secp256k1Identity:
		f.Type = typeSecp256k1
		raw, err = hex.DecodeString(t.HexPrivateKey())
		if err != nil {
			return errors.Wrap(err, "decoding hex key")
		}
	default:
		return fmt.Errorf("unknown did PK type %T", t)
	}

	if fs.passphrase != nil {
		raw, err = fs.seal(raw)
		if err != nil {
			return errors.Wrap(err, "sealing identity")
		}
		f.Sealed = true
	}

	f.Data = base64.StdEncoding.EncodeToString(raw)
	fs.ids.Ids = append(fs.ids.Ids, f)
	fs.idx[pid.ID.String()] = id

	return fs.write()
}

func (fs *FileStore) write() error {
	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return errors.Wrap(err, "opening identity file for write")
	}
	defer f.Close()

	d, err := yaml.Marshal(&fs.ids)
	if err != nil {
		return errors.Wrap(err, "marshalling identity data")
	}

	if err := f.Truncate(0); err != nil {
		return errors.Wrap(err, "truncating identity file")
	}

	_, err = f.WriteAt(d, 0)
	return err
}

func (fs *FileStore) Find(id string) (did.PrivateIdentity, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i, ok := fs.idx[id]
	if !ok {
		return nil, did.ErrIdentityNotFound
	}

	return i, nil
}

// List returns identities ordered by DID
func (fs *FileStore) List() []did.PrivateIdentity {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	keys := make([]string, 0, len(fs.idx))
	for k := range fs.idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ids := make([]did.PrivateIdentity, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, fs.idx[k])
	}

	return ids
}
