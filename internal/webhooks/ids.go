package webhooks

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

const (
	// Alphabet used for ids and secrets: no lookalike characters and no vowels,
	// which keeps accidental words out of generated strings
	Alphabet = "6789BCDFGHJKLMNPQRTWbcdfghjkmnpqrtwz"

	// TagLength is the number of hash characters that bind an id to a conversation
	TagLength = 8
	// SuffixLength is the number of random characters after the tag
	SuffixLength = 14
	// SecretPrefix starts every secret
	SecretPrefix = "SK_"
	// SecretLength is the number of random characters after SecretPrefix
	SecretLength = 22
)

var (
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9_=-]{` + fmt.Sprint(TagLength) + `}/[` + Alphabet + `]{` + fmt.Sprint(SuffixLength) + `}$`)
	secretPattern = regexp.MustCompile(`^` + SecretPrefix + `[` + Alphabet + `]{` + fmt.Sprint(SecretLength) + `}$`)
)

// OwnershipTag returns the prefix every webhook id of the conversation starts with
func OwnershipTag(conversationID string) string {
	return hashString(conversationID)[:TagLength]
}

// HashSecret returns the one-way hash stored in place of the secret
func HashSecret(secret string) string {
	return hashString(secret)
}

// ValidID reports whether id has the lexical format of a webhook id
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidSecret reports whether secret has the lexical format of a webhook secret
func ValidSecret(secret string) bool {
	return secretPattern.MatchString(secret)
}

// ParseSecret extracts the secret from a raw credential, accepting an optional
// "Bearer " prefix. It returns "" when the result is not a well-formed secret.
func ParseSecret(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if !ValidSecret(raw) {
		return ""
	}
	return raw
}

func newID(conversationID string) (string, error) {
	suffix, err := randomString(SuffixLength)
	if err != nil {
		return "", err
	}
	return OwnershipTag(conversationID) + "/" + suffix, nil
}

func newSecret() (string, error) {
	s, err := randomString(SecretLength)
	if err != nil {
		return "", err
	}
	return SecretPrefix + s, nil
}

// randomString draws n characters from Alphabet with crypto/rand, rejecting bytes
// that would bias the distribution
func randomString(n int) (string, error) {
	const maxByte = 256 - (256 % len(Alphabet))

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.URLEncoding.EncodeToString(sum[:])
}
