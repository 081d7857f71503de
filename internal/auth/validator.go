// Package auth verifies the signed tokens the bot platform attaches to the
// activities it posts to the gateway.
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
)

// DefaultLeeway is the clock skew tolerated on time-based claims
const DefaultLeeway = 5 * time.Minute

var (
	ErrMissingHeader = errors.AuthError("Missing Authorization header")
	ErrInvalidHeader = errors.AuthError("Invalid Authorization header")
	ErrInvalidToken  = errors.AuthError("Invalid JWT")

	ErrServiceURLMismatch = errors.AuthError("Service URL does not match token")
)

var headerPattern = regexp.MustCompile(`^(?:Bearer )?([A-Za-z0-9\-_=]+\.[A-Za-z0-9\-_=]+\.[A-Za-z0-9\-_.+/=]*)$`)

// Claims are the claims of a platform token the gateway looks at
type Claims struct {
	jwt.RegisteredClaims
	ServiceURL string `json:"serviceurl,omitempty"`
}

// KeyProvider resolves the public key a token was signed with
type KeyProvider interface {
	GetKey(ctx context.Context, keyID, algHint string) (*SigningKey, error)
}

// Validator checks the Authorization header of inbound platform requests
type Validator struct {
	keys   KeyProvider
	parser *jwt.Parser
	logger logging.Logger
}

// ValidatorOption configures a Validator
type ValidatorOption func(*validatorOptions)

type validatorOptions struct {
	leeway  time.Duration
	timeNow func() time.Time
}

// WithLeeway overrides DefaultLeeway
func WithLeeway(d time.Duration) ValidatorOption {
	return func(o *validatorOptions) {
		o.leeway = d
	}
}

// WithTimeFunc sets the clock used for exp/nbf/iat checks
func WithTimeFunc(now func() time.Time) ValidatorOption {
	return func(o *validatorOptions) {
		o.timeNow = now
	}
}

// NewValidator creates a validator accepting RS256 tokens issued by issuer for audience
func NewValidator(keys KeyProvider, issuer, audience string, opts ...ValidatorOption) *Validator {
	o := validatorOptions{leeway: DefaultLeeway}
	for _, opt := range opts {
		opt(&o)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(o.leeway),
		jwt.WithExpirationRequired(),
	}
	if o.timeNow != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(o.timeNow))
	}

	return &Validator{
		keys:   keys,
		parser: jwt.NewParser(parserOpts...),
		logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "auth"}),
	}
}

// Validate verifies the raw Authorization header value and returns the token claims
func (v *Validator) Validate(ctx context.Context, header string) (*Claims, error) {
	if header == "" {
		return nil, ErrMissingHeader
	}

	match := headerPattern.FindStringSubmatch(header)
	if len(match) != 2 {
		return nil, ErrInvalidHeader
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(match[1], claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, stderrors.New("token has no kid")
		}
		key, err := v.keys.GetKey(ctx, kid, token.Method.Alg())
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", kid, err)
		}
		return key.Key, nil
	})
	if err != nil {
		v.logger.WithContext(ctx).Warn("Error validating JWT", logging.Field{Key: "error", Value: err.Error()})
		return nil, ErrInvalidToken
	}

	return claims, nil
}
