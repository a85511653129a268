package did

import "errors"

var ErrIdentityNotFound = errors.New("identity not found")

type IdentityStore interface {
	Find(id string) (PrivateIdentity, error)
	List() []PrivateIdentity
}
