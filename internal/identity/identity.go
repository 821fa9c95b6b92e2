// Package identity derives the local user identity from the JWT issued by
// the backend.
package identity

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoAnonID is returned when the token carries no anon_id claim.
var ErrNoAnonID = errors.New("identity: token has no anon_id claim")

// Identity is the local user as asserted by the backend-issued token.
type Identity struct {
	// UserID is the anonymous UUID from the anon_id claim.
	UserID string
	// DisplayName is the optional display_name claim.
	DisplayName string
	// ExpiresAt is the token expiry, zero when the token has none.
	ExpiresAt time.Time
}

// FromToken extracts the identity claims without verifying the signature.
// The backend is the verifier; the client only needs to know who it is
// talking as.
func FromToken(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	anonID, _ := claims["anon_id"].(string)
	if anonID == "" {
		return nil, ErrNoAnonID
	}

	ident := &Identity{UserID: anonID}
	if name, ok := claims["display_name"].(string); ok {
		ident.DisplayName = name
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ident.ExpiresAt = exp.Time
	}
	return ident, nil
}
