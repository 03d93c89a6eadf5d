package storage

import "errors"

var (
	// ErrKeyNotFound is returned by Get when the key has no stored value.
	ErrKeyNotFound = errors.New("key not found")
)
