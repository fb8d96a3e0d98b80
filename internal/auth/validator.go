package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTValidator verifies HMAC-signed bearer tokens issued by the identity
// provider.
type JWTValidator struct {
	key []byte
}

func NewJWTValidator(hmacKey string) *JWTValidator {
	return &JWTValidator{key: []byte(hmacKey)}
}

// Validate parses the Authorization header value ("Bearer <token>" or a
// bare token) and returns the claims.
func (v *JWTValidator) Validate(authHeader string) (*Claims, error) {
	raw := strings.TrimPrefix(authHeader, "Bearer ")
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
