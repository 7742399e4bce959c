package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTInspector reads claims from access tokens without verifying them.
// Implements domain.TokenInspector.
type JWTInspector struct {
	parser *jwt.Parser
}

// NewJWTInspector creates a new inspector.
func NewJWTInspector() *JWTInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

// ExpiresAt returns the exp claim of token. ok is false for opaque tokens
// and tokens without an expiry.
func (j *JWTInspector) ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := j.parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
