package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"webhook-gateway/internal/common/errors"
	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/metrics"
)

// DefaultFetchCooldown is the minimum time between two key set fetches
const DefaultFetchCooldown = 10 * time.Minute

// fetchTimeout bounds a key set fetch independently of the request that triggered it
const fetchTimeout = 10 * time.Second

// ErrNoKeyFound is returned when no usable key matches the requested key id
var ErrNoKeyFound = errors.AuthError("No key found")

// SigningKey is one public key of the platform's signing key set
type SigningKey struct {
	KeyID     string
	KeyType   string
	Algorithm string
	Key       *rsa.PublicKey
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

// KeyCache caches the signing key set and refreshes it when an unknown key id
// shows up. Refreshes are rate limited by a cooldown measured from the end of the
// previous attempt, failed or not, and concurrent misses share one fetch.
type KeyCache struct {
	url      string
	client   *http.Client
	cooldown time.Duration
	logger   logging.Logger
	now      func() time.Time

	mu        sync.RWMutex
	keys      map[string]*SigningKey
	lastFetch time.Time

	group singleflight.Group
}

// KeyCacheOption configures a KeyCache
type KeyCacheOption func(*KeyCache)

// WithCooldown overrides DefaultFetchCooldown
func WithCooldown(d time.Duration) KeyCacheOption {
	return func(c *KeyCache) {
		c.cooldown = d
	}
}

// WithHTTPClient sets the client used to fetch the key set
func WithHTTPClient(client *http.Client) KeyCacheOption {
	return func(c *KeyCache) {
		c.client = client
	}
}

// NewKeyCache creates an empty cache for the key set published at url
func NewKeyCache(url string, opts ...KeyCacheOption) *KeyCache {
	c := &KeyCache{
		url:      url,
		cooldown: DefaultFetchCooldown,
		logger:   logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "jwks"}),
		now:      time.Now,
		keys:     make(map[string]*SigningKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = httpclient.NewHTTPClientWithTimeout(fetchTimeout)
	}
	return c
}

// GetKey returns the key with the given id. When algHint is set, a key declaring a
// different algorithm is treated as missing.
func (c *KeyCache) GetKey(ctx context.Context, keyID, algHint string) (*SigningKey, error) {
	if keyID == "" {
		return nil, ErrNoKeyFound
	}

	key, ok, cooling := c.state(keyID)
	if ok {
		return checkAlg(key, algHint)
	}
	if cooling {
		return nil, ErrNoKeyFound
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	key, ok = c.lookup(keyID)
	if !ok {
		return nil, ErrNoKeyFound
	}
	return checkAlg(key, algHint)
}

// Refresh fetches the key set now, ignoring the cooldown
func (c *KeyCache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("jwks", func() (interface{}, error) {
		return nil, c.fetch(ctx)
	})
	return err
}

// Len returns the number of cached keys
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

func (c *KeyCache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("jwks", func() (interface{}, error) {
		// A fetch may have completed between our cooldown check and now
		if c.coolingDown() {
			return nil, nil
		}
		return nil, c.fetch(ctx)
	})
	return err
}

func (c *KeyCache) lookup(keyID string) (*SigningKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[keyID]
	return key, ok
}

// state reads the key and the cooldown under one lock, so a fetch completing in
// between cannot make a cached key look missing
func (c *KeyCache) state(keyID string) (*SigningKey, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[keyID]
	return key, ok, c.coolingDownLocked()
}

func (c *KeyCache) coolingDownLocked() bool {
	return !c.lastFetch.IsZero() && c.now().Sub(c.lastFetch) < c.cooldown
}

func (c *KeyCache) coolingDown() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coolingDownLocked()
}

func (c *KeyCache) fetch(ctx context.Context) error {
	// The fetch is shared by every waiting caller, so it must not die with the
	// request that happened to start it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()

	keys, err := c.download(ctx)

	c.mu.Lock()
	c.lastFetch = c.now()
	if err == nil {
		c.keys = keys
	}
	c.mu.Unlock()

	metrics.KeyFetches.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		c.logger.Error("Failed to fetch signing keys", err, logging.Field{Key: "url", Value: c.url})
		return errors.UpstreamError("failed to fetch signing keys", err)
	}

	c.logger.Info("Signing keys refreshed", logging.Field{Key: "keys", Value: len(keys)})
	return nil
}

func (c *KeyCache) download(ctx context.Context) (map[string]*SigningKey, error) {
	var set jwks
	err := httpclient.Do(ctx, c.client, httpclient.Request{Method: http.MethodGet, URL: c.url}, &set)
	if err != nil {
		return nil, err
	}
	if set.Keys == nil {
		return nil, stderrors.New("invalid JWKS response format")
	}

	keys := make(map[string]*SigningKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" || k.N == "" || k.E == "" {
			continue
		}
		pub, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			c.logger.Warn("Skipping malformed signing key",
				logging.Field{Key: "kid", Value: k.Kid},
				logging.Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		keys[k.Kid] = &SigningKey{KeyID: k.Kid, KeyType: k.Kty, Algorithm: k.Alg, Key: pub}
	}
	return keys, nil
}

func checkAlg(key *SigningKey, algHint string) (*SigningKey, error) {
	if algHint != "" && key.Algorithm != "" && !strings.EqualFold(key.Algorithm, algHint) {
		return nil, ErrNoKeyFound
	}
	return key, nil
}

// rsaPublicKey builds a key from the base64url modulus and exponent of a JWK
func rsaPublicKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(n, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(e, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	if len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, fmt.Errorf("invalid exponent length %d", len(eBytes))
	}

	var exp int
	for _, b := range eBytes {
		exp = exp<<8 | int(b)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exp}, nil
}
