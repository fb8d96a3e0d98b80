package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/careloop/companion-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type contextKey string

const claimsKey contextKey = "jwt_claims"

type UserSyncer interface {
	SyncFromJWT(ctx context.Context, userID, email, name, role string) error
}

type Middleware struct {
	validator  *JWTValidator
	userSyncer UserSyncer
}

func NewMiddleware(validator *JWTValidator, userSyncer UserSyncer) *Middleware {
	return &Middleware{
		validator:  validator,
		userSyncer: userSyncer,
	}
}

func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return shared.Unauthorized("missing_token", "authorization header required")
		}

		claims, err := m.validator.Validate(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return shared.Unauthorized("token_expired", "token has expired")
			}
			return shared.Unauthorized("invalid_token", "invalid or malformed token")
		}

		ctx := context.WithValue(c.Request().Context(), claimsKey, claims)
		c.SetRequest(c.Request().WithContext(ctx))

		if m.userSyncer != nil {
			_ = m.userSyncer.SyncFromJWT(ctx, claims.UserID, claims.Email, claims.Name, claims.Role)
		}

		return next(c)
	}
}

// bearerToken pulls the token from the Authorization header, falling back
// to the token query parameter for websocket upgrades where clients cannot
// set headers.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.QueryParam("token")
}

func GetClaims(c echo.Context) *Claims {
	claims, ok := c.Request().Context().Value(claimsKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func RequireAuth(c echo.Context) (string, error) {
	claims := GetClaims(c)
	if claims == nil {
		return "", shared.Unauthorized("auth_required", "authentication required")
	}
	return claims.UserID, nil
}

func MiddlewareFunc(validator *JWTValidator, userSyncer UserSyncer) echo.MiddlewareFunc {
	m := NewMiddleware(validator, userSyncer)
	return m.Authenticate
}

func SetClaimsForTest(c echo.Context, claims *Claims) {
	ctx := context.WithValue(c.Request().Context(), claimsKey, claims)
	c.SetRequest(c.Request().WithContext(ctx))
}
