package api

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 30 * 24 * time.Hour

// IssueToken signs an HS256 bearer token for subject.
func IssueToken(secretKey string, subject string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secretKey) == "" {
		return "", errors.New("secret key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if strings.TrimSpace(subject) == "" {
		subject = "owner"
	}

	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
