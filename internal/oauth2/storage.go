package oauth2

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"webhook-gateway/internal/store"
)

// StorageKey is where the shared access token lives in the store
const StorageKey = "bot:access-token"

// TokenStorage shares a token between gateway instances
type TokenStorage interface {
	// SaveToken stores token until its expiry
	SaveToken(ctx context.Context, token *Token) error
	// LoadToken returns the stored token, or nil when there is none
	LoadToken(ctx context.Context) (*Token, error)
}

// StoreTokenStorage keeps the token in a store.Store under StorageKey
type StoreTokenStorage struct {
	store store.Store
	now   func() time.Time
}

// NewStoreTokenStorage creates token storage on top of s
func NewStoreTokenStorage(s store.Store) *StoreTokenStorage {
	return &StoreTokenStorage{store: s, now: time.Now}
}

// SaveToken writes the token with a TTL matching its expiry. Already expired
// tokens are not written.
func (s *StoreTokenStorage) SaveToken(ctx context.Context, token *Token) error {
	ttl := token.Expiry.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := s.store.Put(ctx, StorageKey, data, ttl); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken reads the stored token
func (s *StoreTokenStorage) LoadToken(ctx context.Context) (*Token, error) {
	data, err := s.store.Get(ctx, StorageKey)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}
