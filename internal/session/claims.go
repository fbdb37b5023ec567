package session

import (
	"fmt"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the ID token fields Movli reads.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// UID returns user_id, falling back to the subject.
func (c *Claims) UID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Identity converts the claims to an [models.Identity].
func (c *Claims) Identity(provider string) *models.Identity {
	return &models.Identity{UID: c.UID(), Email: c.Email, DisplayName: c.Name, Provider: provider}
}

// ParseIDToken reads the claims of an ID token without verifying its signature.
//
// The identity provider issued the token over TLS; verification happens on the backend.
func ParseIDToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}
	return claims, nil
}
