package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/roastery/internal/identity"
)

type fakeIdentity struct {
	redirectTo string
	code       string
	err        error
}

func (f *fakeIdentity) Signup(_ context.Context, creds identity.Credentials, redirectTo string) (identity.User, error) {
	f.redirectTo = redirectTo
	if f.err != nil {
		return identity.User{}, f.err
	}
	return identity.User{ID: "u-1", Email: creds.Email}, nil
}

func (f *fakeIdentity) Login(_ context.Context, creds identity.Credentials) (identity.Session, error) {
	if f.err != nil {
		return identity.Session{}, f.err
	}
	return identity.Session{AccessToken: "tok", User: &identity.User{ID: "u-1", Email: creds.Email}}, nil
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code, _ string) (identity.Session, error) {
	f.code = code
	if f.err != nil {
		return identity.Session{}, f.err
	}
	return identity.Session{AccessToken: "tok"}, nil
}

func newAuthEcho(provider IdentityProvider, redirectURL string) *echo.Echo {
	e := echo.New()
	NewAuthHandler(nil, provider, redirectURL).Register(e)
	return e
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return serve(e, req)
}

func TestSignupUsesConfiguredRedirect(t *testing.T) {
	provider := &fakeIdentity{}
	e := newAuthEcho(provider, "https://roastery.example.com/")

	rec := postJSON(e, "/auth/signup", `{"email":"a@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "https://roastery.example.com/auth/callback", provider.redirectTo)

	var resp SignupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Equal(t, "u-1", resp.User.ID)
}

func TestSignupFallsBackToRequestOrigin(t *testing.T) {
	provider := &fakeIdentity{}
	e := newAuthEcho(provider, "")
	rec := postJSON(e, "/auth/signup", `{"email":"a@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "http://example.com/auth/callback", provider.redirectTo)
}

func TestSignupProviderRejection(t *testing.T) {
	provider := &fakeIdentity{err: &identity.ProviderError{Status: 422, Message: "User already registered"}}
	e := newAuthEcho(provider, "")
	rec := postJSON(e, "/auth/signup", `{"email":"a@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already registered")
}

func TestLogin(t *testing.T) {
	e := newAuthEcho(&fakeIdentity{}, "")
	rec := postJSON(e, "/auth/login", `{"email":"a@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, "tok", resp.Session.AccessToken)

	e = newAuthEcho(&fakeIdentity{err: &identity.ProviderError{Status: 400, Message: "Invalid login credentials"}}, "")
	rec = postJSON(e, "/auth/login", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallback(t *testing.T) {
	provider := &fakeIdentity{}
	e := newAuthEcho(provider, "")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "abc", provider.code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	provider.err = &identity.ProviderError{Status: 403, Message: "code expired"}
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthNotConfigured(t *testing.T) {
	e := newAuthEcho(&fakeIdentity{err: identity.ErrNotConfigured}, "")
	rec := postJSON(e, "/auth/login", `{"email":"a@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimited(t *testing.T) {
	e := newAuthEcho(&fakeIdentity{}, "")
	limited := false
	for i := 0; i < 20; i++ {
		rec := postJSON(e, "/auth/login", `{"email":"a@example.com","password":"secret1"}`)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected a 429 after a burst of logins")
}
