package storage

import "github.com/pkg/errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidRecord = errors.New("record is invalid")
)
