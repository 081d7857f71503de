// Package oauth2 obtains and caches the client-credentials token the gateway uses
// for outbound calls to the bot platform.
package oauth2

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TokenResponse is the token endpoint's answer
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   ExpiresIn `json:"expires_in"`
}

// ExpiresIn is a lifetime in seconds. Some endpoints send it as a string.
type ExpiresIn int64

// UnmarshalJSON accepts a JSON number or a numeric string
func (e *ExpiresIn) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("expires_in: %w", err)
		}
		n = json.Number(s)
	}
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("expires_in: %w", err)
	}
	*e = ExpiresIn(v)
	return nil
}

// Token is an access token with its expiry
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

// ValidFor reports whether the token is still usable for at least d after now
func (t *Token) ValidFor(d time.Duration, now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Add(d).Before(t.Expiry)
}
