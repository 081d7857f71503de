package oauth2

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"webhook-gateway/internal/circuitbreaker"
	"webhook-gateway/internal/common/errors"
	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/metrics"
)

const (
	// DefaultSafetyMargin is how long a token must remain valid to be handed out
	DefaultSafetyMargin = 30 * time.Second
	// SharedExpiryReduction shortens the expiry of the copy written to storage
	SharedExpiryReduction = 5 * time.Minute

	exchangeTimeout = 30 * time.Second
)

// Config holds the client credentials and the endpoint they are exchanged at
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

// TokenCache hands out a valid access token, exchanging the client credentials
// only when neither memory nor storage holds one that is valid long enough.
type TokenCache struct {
	config  Config
	client  *http.Client
	storage TokenStorage
	breaker *circuitbreaker.GoBreakerAdapter
	logger  logging.Logger
	margin  time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	token *Token

	group singleflight.Group
}

// Option configures a TokenCache
type Option func(*TokenCache)

// WithHTTPClient sets the client used for the exchange
func WithHTTPClient(client *http.Client) Option {
	return func(c *TokenCache) {
		c.client = client
	}
}

// WithSafetyMargin overrides DefaultSafetyMargin
func WithSafetyMargin(d time.Duration) Option {
	return func(c *TokenCache) {
		c.margin = d
	}
}

// NewTokenCache creates a cache for config. storage may be nil.
func NewTokenCache(config Config, storage TokenStorage, opts ...Option) (*TokenCache, error) {
	if config.ClientID == "" {
		return nil, errors.ValidationError("client_id is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.ValidationError("client_secret is required")
	}
	if config.TokenURL == "" {
		return nil, errors.ValidationError("token_url is required")
	}

	logger := logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "oauth2"})
	c := &TokenCache{
		config:  config,
		storage: storage,
		breaker: circuitbreaker.NewGoBreaker("oauth2-token", circuitbreaker.TokenConfig, logger),
		logger:  logger,
		margin:  DefaultSafetyMargin,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = httpclient.NewHTTPClientWithTimeout(exchangeTimeout)
	}
	return c, nil
}

// GetToken returns an access token valid for at least the safety margin
func (c *TokenCache) GetToken(ctx context.Context) (string, error) {
	if token := c.cached(); token != nil {
		return token.AccessToken, nil
	}

	v, err, _ := c.group.Do("token", func() (interface{}, error) {
		if token := c.cached(); token != nil {
			return token, nil
		}

		// Shared by every waiting caller, see KeyCache
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
		defer cancel()

		if token := c.loadShared(ctx); token != nil {
			c.setToken(token)
			return token, nil
		}

		token, err := c.exchange(ctx)
		if err != nil {
			return nil, err
		}
		c.setToken(token)
		c.saveShared(ctx, token)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(*Token).AccessToken, nil
}

func (c *TokenCache) cached() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token.ValidFor(c.margin, c.now()) {
		return c.token
	}
	return nil
}

func (c *TokenCache) setToken(token *Token) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *TokenCache) loadShared(ctx context.Context) *Token {
	if c.storage == nil {
		return nil
	}
	token, err := c.storage.LoadToken(ctx)
	if err != nil {
		c.logger.Warn("Failed to load shared token", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	if !token.ValidFor(c.margin, c.now()) {
		return nil
	}
	c.logger.Debug("Adopted shared token", logging.Field{Key: "expires_at", Value: token.Expiry})
	return token
}

func (c *TokenCache) saveShared(ctx context.Context, token *Token) {
	if c.storage == nil {
		return
	}
	shared := *token
	shared.Expiry = token.Expiry.Add(-SharedExpiryReduction)
	if err := c.storage.SaveToken(ctx, &shared); err != nil {
		c.logger.Warn("Failed to persist token", logging.Field{Key: "error", Value: err.Error()})
	}
}

func (c *TokenCache) exchange(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	if c.config.Scope != "" {
		form.Set("scope", c.config.Scope)
	}

	var resp TokenResponse
	err := c.breaker.Execute(ctx, func() error {
		err := httpclient.Do(ctx, c.client, httpclient.Request{
			Method:      http.MethodPost,
			URL:         c.config.TokenURL,
			Body:        strings.NewReader(form.Encode()),
			ContentType: "application/x-www-form-urlencoded",
		}, &resp)
		if err != nil {
			return err
		}
		return checkResponse(&resp)
	})
	metrics.TokenExchanges.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		c.logger.Error("Token request failed", err, logging.Field{Key: "url", Value: c.config.TokenURL})
		return nil, errors.UpstreamError("token request failed", err)
	}

	expiry := c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	c.logger.Info("Obtained access token", logging.Field{Key: "expires_at", Value: expiry})
	return &Token{AccessToken: resp.AccessToken, TokenType: resp.TokenType, Expiry: expiry}, nil
}

func checkResponse(resp *TokenResponse) error {
	if !strings.EqualFold(resp.TokenType, "Bearer") {
		return fmt.Errorf("unexpected token type %q", resp.TokenType)
	}
	if resp.AccessToken == "" {
		return stderrors.New("token response has no access_token")
	}
	if resp.ExpiresIn <= 0 {
		return fmt.Errorf("invalid expires_in %d", resp.ExpiresIn)
	}
	return nil
}
