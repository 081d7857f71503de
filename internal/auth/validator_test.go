package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T, opts ...ValidatorOption) *Validator {
	t.Helper()
	key, _ := signingKeys(t)
	srv := newJWKSServer(t, jwkFor("k1", &key.PublicKey))
	return NewValidator(NewKeyCache(srv.URL), testIssuer, testAudience, opts...)
}

func TestValidator_ValidToken(t *testing.T) {
	v := newTestValidator(t)
	key, _ := signingKeys(t)

	claims := &Claims{RegisteredClaims: validClaims(), ServiceURL: "https://smba.example.com/"}
	token := signToken(t, key, "k1", claims)

	for _, header := range []string{"Bearer " + token, token} {
		got, err := v.Validate(context.Background(), header)
		require.NoError(t, err)
		assert.Equal(t, testIssuer, got.Issuer)
		assert.Equal(t, "https://smba.example.com/", got.ServiceURL)
	}
}

func TestValidator_Header(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Validate(context.Background(), "")
	assert.Same(t, ErrMissingHeader, err)

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer not-a-jwt", "Bearer a.b.c d", "bearer a.b.c"} {
		_, err = v.Validate(context.Background(), header)
		assert.Same(t, ErrInvalidHeader, err, header)
	}
}

func TestValidator_RejectsBadClaims(t *testing.T) {
	v := newTestValidator(t)
	key, other := signingKeys(t)

	tests := []struct {
		name  string
		token func() string
	}{
		{"wrong issuer", func() string {
			c := validClaims()
			c.Issuer = "https://evil.example.com"
			return signToken(t, key, "k1", c)
		}},
		{"wrong audience", func() string {
			c := validClaims()
			c.Audience = jwt.ClaimStrings{"someone-else"}
			return signToken(t, key, "k1", c)
		}},
		{"expired beyond leeway", func() string {
			c := validClaims()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-DefaultLeeway - time.Minute))
			return signToken(t, key, "k1", c)
		}},
		{"not yet valid", func() string {
			c := validClaims()
			c.NotBefore = jwt.NewNumericDate(time.Now().Add(DefaultLeeway + time.Minute))
			return signToken(t, key, "k1", c)
		}},
		{"no expiry", func() string {
			c := validClaims()
			c.ExpiresAt = nil
			return signToken(t, key, "k1", c)
		}},
		{"no kid", func() string {
			return signToken(t, key, "", validClaims())
		}},
		{"unknown kid", func() string {
			return signToken(t, key, "k9", validClaims())
		}},
		{"wrong signing key", func() string {
			return signToken(t, other, "k1", validClaims())
		}},
		{"hmac algorithm", func() string {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
			token.Header["kid"] = "k1"
			signed, err := token.SignedString([]byte("shared-secret"))
			require.NoError(t, err)
			return signed
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), "Bearer "+tt.token())
			assert.Same(t, ErrInvalidToken, err)
		})
	}
}

func TestValidator_Leeway(t *testing.T) {
	key, _ := signingKeys(t)

	c := validClaims()
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Minute))
	token := signToken(t, key, "k1", c)

	_, err := newTestValidator(t).Validate(context.Background(), "Bearer "+token)
	assert.NoError(t, err, "expiry within the leeway is accepted")

	_, err = newTestValidator(t, WithLeeway(time.Minute)).Validate(context.Background(), "Bearer "+token)
	assert.Same(t, ErrInvalidToken, err)
}

func TestValidator_TimeFunc(t *testing.T) {
	key, _ := signingKeys(t)
	token := signToken(t, key, "k1", validClaims())

	future := func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := newTestValidator(t, WithTimeFunc(future)).Validate(context.Background(), "Bearer "+token)
	assert.Same(t, ErrInvalidToken, err)
}
