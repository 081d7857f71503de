package auth

import (
	"context"
	"net/http"

	httpclient "webhook-gateway/internal/common/http"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// TokenValidator is implemented by Validator
type TokenValidator interface {
	Validate(ctx context.Context, header string) (*Claims, error)
}

// Middleware rejects requests without a valid platform token and stores the
// verified claims on the request context
func Middleware(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Validate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				httpclient.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// ContextWithClaims returns a copy of ctx carrying claims
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by Middleware, or nil
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}
