// Package kvstore provides a string-keyed store with a durable backend and
// an in-process fallback. The fallback wrapper never surfaces backend
// failures to callers; values written during an outage stay readable for
// the lifetime of the process.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by backends when a key has no value.
var ErrNotFound = errors.New("key not found")

// Backend is the contract both the durable and the in-process store satisfy.
type Backend interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}
