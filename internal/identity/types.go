package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no provider base URL is set.
var ErrNotConfigured = errors.New("identity provider not configured")

// User is the provider's account record.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Session is an issued access/refresh token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Credentials are an email/password pair.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Normalize trims and lowercases the email.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c
}

// ProviderError is a non-2xx answer from the identity provider.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("identity provider: %s (%d)", e.Message, e.Status)
}
