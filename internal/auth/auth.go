// Package auth verifies bearer tokens issued by the identity provider and
// exposes the caller id to handlers.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const contextKey = "user"

// Messages returned with 401 responses.
const (
	MsgNoAuthorization = "No authorization header"
	MsgInvalidToken    = "Invalid token"
)

// Claims are the fields read from provider-issued access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates HS256 bearer tokens signed with secret. Requests for
// which skipper returns true pass through untouched.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    contextKey,
		TokenLookup:   "header:Authorization:Bearer ",
		Skipper:       skipper,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization)) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNoAuthorization)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken).SetInternal(err)
		},
	})
}

// UserIDFromContext returns the subject of the verified token.
func UserIDFromContext(c echo.Context) (string, error) {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return "", err
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken)
	}
	return userID, nil
}

// ClaimsFromContext returns the verified claims placed by JWTMiddleware.
func ClaimsFromContext(c echo.Context) (*Claims, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, MsgNoAuthorization)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken)
	}
	return claims, nil
}

// GenerateToken signs a token for userID that expires after ttl.
func GenerateToken(userID, secret string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token ttl must be positive")
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
