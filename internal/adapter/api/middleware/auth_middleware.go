package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/c-pro/geche"
	"github.com/labstack/echo/v4"

	"chatsync/pkg/errors"
	"chatsync/pkg/response"
)

// TokenVerifier returns the uid a token belongs to and when the token
// expires. A zero expiry means the token does not expire.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uid string, expires time.Time, err error)
}

type verifiedToken struct {
	uid     string
	expires time.Time
}

type AuthMiddleware struct {
	verifier TokenVerifier
	// verified maps ID token to its verification; nil disables caching.
	verified geche.Geche[string, verifiedToken]
	now      func() time.Time
}

// NewAuthMiddleware caches successful verifications for ttl, but never past
// the token's own expiry. A zero ttl verifies every request.
func NewAuthMiddleware(ctx context.Context, verifier TokenVerifier, ttl time.Duration) *AuthMiddleware {
	m := &AuthMiddleware{verifier: verifier, now: time.Now}
	if ttl > 0 {
		m.verified = geche.NewMapTTLCache[string, verifiedToken](ctx, ttl, time.Minute)
	}
	return m
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		uid, err := m.GetUIDFromToken(c.Request().Context(), idToken)
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		// Add the user ID to the context
		c.Set("uid", uid)

		return next(c)
	}
}

func (m *AuthMiddleware) GetUIDFromToken(ctx context.Context, token string) (string, error) {
	if m.verified != nil {
		if hit, err := m.verified.Get(token); err == nil {
			if hit.expires.IsZero() || m.now().Before(hit.expires) {
				return hit.uid, nil
			}
			m.verified.Del(token)
		}
	}

	uid, expires, err := m.verifier.VerifyToken(ctx, token)
	if err != nil {
		return "", err
	}

	if m.verified != nil {
		m.verified.Set(token, verifiedToken{uid: uid, expires: expires})
	}
	return uid, nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so the token query parameter is accepted too.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}
