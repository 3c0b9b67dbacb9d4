package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resolveExpiry prefers the "expired" field (unix milliseconds) of the
// sign-in response and falls back to the token's own exp claim. The token
// is not verified here; the API remains the authority on its validity.
func resolveExpiry(expiredMillis int64, token string) (time.Time, error) {
	if expiredMillis > 0 {
		return time.UnixMilli(expiredMillis), nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoExpiry, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
