// Package kvstore is the key-value collaborator behind the todo handlers.
// A Backend holds the connection to one storage system; a Provider binds
// logical namespace names to namespaced views of that backend.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxKeyBytes is the longest key any backend accepts.
const MaxKeyBytes = 512

var (
	ErrUnknownNamespace  = errors.New("unknown namespace")
	ErrClosed            = errors.New("store closed")
	ErrEmptyKey          = errors.New("key is empty")
	ErrKeyTooLong        = errors.New("key too long")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)

// Store is a namespaced view of a backend.
type Store interface {
	// ListKeys returns every key in the namespace. Order is backend defined.
	ListKeys(ctx context.Context) ([]string, error)
	// Put sets key to value, overwriting any previous value.
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Backend is a connection to one storage system.
type Backend interface {
	// Store returns the view of the backend scoped to namespace.
	Store(namespace string) Store
	// Ping reports whether the storage system is reachable.
	Ping(ctx context.Context) error
	Close() error
	// Driver names the backend for logs and metrics.
	Driver() string
}

// ValidateKey checks key against the limits shared by every backend.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(key) > MaxKeyBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrKeyTooLong, len(key), MaxKeyBytes)
	}
	return nil
}

// namespacePrefix is the physical key prefix for namespace on backends
// without a native namespace concept.
func namespacePrefix(namespace string) string {
	return namespace + "/"
}

func stripPrefix(prefix string, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out
}
