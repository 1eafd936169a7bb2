package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no session token")

// Claims is what the dashboard can read out of a token without the
// signing key. It is informational only; the backend remains the judge
// of validity.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type peekClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// PeekClaims decodes a JWT-shaped token without verifying it. Opaque
// tokens return an error.
func PeekClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNoToken
	}

	var pc peekClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &pc); err != nil {
		return Claims{}, fmt.Errorf("token is not a readable jwt: %w", err)
	}

	c := Claims{Subject: pc.Subject, Role: pc.Role}
	if c.Subject == "" {
		c.Subject = pc.UserID
	}
	if pc.ExpiresAt != nil {
		c.ExpiresAt = pc.ExpiresAt.Time.UTC()
	}
	return c, nil
}
