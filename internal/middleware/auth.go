// Package middleware provides request-scoped fiber middleware: viewer
// authentication, structured logging, metrics, tracing and rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"canopy/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// Expected token issuer and audience.
const (
	TokenIssuer   = "canopy-api"
	TokenAudience = "canopy-client"
)

// ErrTokenRevoked is returned for tokens whose jti has been blacklisted.
var ErrTokenRevoked = errors.New("token has been revoked")

// TokenVerifier validates bearer tokens issued for the API. Issuing tokens
// happens elsewhere.
type TokenVerifier struct {
	secret []byte
	redis  *redis.Client
}

// NewTokenVerifier returns a verifier for HMAC-signed tokens. rdb is optional
// and only used for the jti revocation list.
func NewTokenVerifier(secret string, rdb *redis.Client) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), redis: rdb}
}

// Verify parses raw and returns the user ID in its subject claim.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}

	if claims.ID != "" && v.redis != nil {
		n, err := v.redis.Exists(ctx, "blacklist:"+claims.ID).Result()
		if err == nil && n > 0 {
			return 0, ErrTokenRevoked
		}
	}

	return uint(userID), nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// When allowQuery is set, a ?token= parameter is accepted as a fallback
// (browsers cannot set headers on websocket upgrades).
func BearerToken(c *fiber.Ctx, allowQuery bool) string {
	parts := strings.Fields(c.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

func setViewer(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// OptionalViewer resolves the viewer when a valid token is present. Missing,
// malformed, expired or revoked tokens leave the request anonymous.
func (v *TokenVerifier) OptionalViewer(allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c, allowQuery)
		if raw == "" {
			return c.Next()
		}
		userID, err := v.Verify(c.UserContext(), raw)
		if err != nil {
			Logger.DebugContext(c.UserContext(), "ignoring invalid bearer token", "error", err.Error())
			return c.Next()
		}
		setViewer(c, userID)
		return c.Next()
	}
}

// RequireViewer rejects requests without a valid token.
func (v *TokenVerifier) RequireViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c, false)
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		userID, err := v.Verify(c.UserContext(), raw)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, ErrTokenRevoked) {
				msg = "Token has been revoked"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}
		setViewer(c, userID)
		return c.Next()
	}
}

// ViewerFrom returns the viewer stored by the auth middleware, or nil.
func ViewerFrom(c *fiber.Ctx) *models.Viewer {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return nil
	}
	return models.NewViewer(userID)
}
