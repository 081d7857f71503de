// Package store is the key-value layer the gateway keeps its durable state in.
// Backends are eventually consistent: a write may take a moment to be visible to
// List, and nothing here offers transactions or compare-and-set.
package store

import (
	"context"
	"strings"
	"time"

	"webhook-gateway/internal/common/errors"
)

// ErrNotFound is returned by Get when the key does not exist or has expired
var ErrNotFound = errors.NotFoundError("key")

// Store is the interface every backend implements
type Store interface {
	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes value under key. A zero ttl never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns at most limit keys starting with prefix, in no particular order
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	// Health reports whether the backend is reachable
	Health(ctx context.Context) error
}

// Namespaced scopes every key of a Store under a fixed prefix
type Namespaced struct {
	inner  Store
	prefix string
}

// WithNamespace returns a view of s where all keys live under prefix
func WithNamespace(s Store, prefix string) *Namespaced {
	return &Namespaced{inner: s, prefix: prefix}
}

func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return n.inner.Put(ctx, n.prefix+key, value, ttl)
}

func (n *Namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

// List returns keys with the namespace prefix removed
func (n *Namespaced) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	keys, err := n.inner.List(ctx, n.prefix+prefix, limit)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		keys[i] = strings.TrimPrefix(key, n.prefix)
	}
	return keys, nil
}

func (n *Namespaced) Health(ctx context.Context) error {
	return n.inner.Health(ctx)
}
