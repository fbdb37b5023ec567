package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/session"
	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errNoSubject    = errors.New("token has no user id")
)

type contextKey struct{}

// Authenticator validates bearer ID tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an [Authenticator]. An empty secret selects development mode.
func NewAuthenticator(secret string) *Authenticator {
	a := &Authenticator{}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// Verified reports whether token signatures are checked.
func (a *Authenticator) Verified() bool { return a.secret != nil }

// Verify parses token and returns its claims.
func (a *Authenticator) Verify(token string) (*session.Claims, error) {
	claims := &session.Claims{}

	if a.Verified() {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
		if err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		if err := jwt.NewValidator(jwt.WithLeeway(30 * time.Second)).Validate(claims); err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims.UID() == "" {
		return nil, errNoSubject
	}
	return claims, nil
}

// Issue signs a token for uid valid for ttl. It requires a secret.
func (a *Authenticator) Issue(uid, email, name string, ttl time.Duration) (string, error) {
	if !a.Verified() {
		return "", fmt.Errorf("issuing tokens requires server.jwt_secret")
	}

	now := time.Now()
	claims := &session.Claims{
		UserID: uid,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// FromRequest verifies the request's bearer token.
func (a *Authenticator) FromRequest(r *http.Request) (*session.Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, errMissingToken
	}
	return a.Verify(strings.TrimSpace(token))
}

// withUser stores the authenticated identity in ctx.
func withUser(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// UserFromContext returns the identity set by the authentication middleware, or nil.
func UserFromContext(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(contextKey{}).(*models.Identity)
	return identity
}
