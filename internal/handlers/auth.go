package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/memohai/roastery/internal/identity"
)

// IdentityProvider delegates account operations to the external provider.
type IdentityProvider interface {
	Signup(ctx context.Context, creds identity.Credentials, redirectTo string) (identity.User, error)
	Login(ctx context.Context, creds identity.Credentials) (identity.Session, error)
	ExchangeCode(ctx context.Context, code, verifier string) (identity.Session, error)
}

type AuthHandler struct {
	provider    IdentityProvider
	redirectURL string
	logger      *slog.Logger
}

const (
	callbackPath      = "/auth/callback"
	loginRedirectPath = "/login"

	// per client IP
	authRequestsPerSecond = 5
)

type SignupResponse struct {
	Message string        `json:"message"`
	User    identity.User `json:"user"`
}

type LoginResponse struct {
	User    *identity.User   `json:"user"`
	Session identity.Session `json:"session"`
}

// NewAuthHandler creates the auth handler. redirectURL is the public origin
// confirmation emails link back to; when empty the request origin is used.
func NewAuthHandler(log *slog.Logger, provider IdentityProvider, redirectURL string) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		provider:    provider,
		redirectURL: strings.TrimRight(strings.TrimSpace(redirectURL), "/"),
		logger:      log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(authRequestsPerSecond)))
	group := e.Group("/auth", limiter)
	group.POST("/signup", h.Signup)
	group.POST("/login", h.Login)
	group.GET("/callback", h.Callback)
}

// Signup godoc
// @Summary Register an account
// @Tags auth
// @Param payload body identity.Credentials true "Signup request"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var creds identity.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"}).SetInternal(err)
	}
	user, err := h.provider.Signup(c.Request().Context(), creds, h.callbackURL(c))
	if err != nil {
		return h.providerError(c, err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, SignupResponse{Message: "User created successfully", User: user})
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Param payload body identity.Credentials true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var creds identity.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"}).SetInternal(err)
	}
	session, err := h.provider.Login(c.Request().Context(), creds)
	if err != nil {
		return h.providerError(c, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, LoginResponse{User: session.User, Session: session})
}

// Callback godoc
// @Summary Confirm an email address
// @Description Exchanges the confirmation code for a session and redirects to the login page
// @Tags auth
// @Param code query string true "Confirmation code"
// @Param code_verifier query string false "PKCE verifier"
// @Success 302
// @Failure 400 {object} ErrorResponse
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c echo.Context) error {
	code := strings.TrimSpace(c.QueryParam("code"))
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: "code is required"})
	}
	if _, err := h.provider.ExchangeCode(c.Request().Context(), code, c.QueryParam("code_verifier")); err != nil {
		return h.providerError(c, err, http.StatusBadRequest)
	}
	return c.Redirect(http.StatusFound, loginRedirectPath)
}

func (h *AuthHandler) callbackURL(c echo.Context) string {
	base := h.redirectURL
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + callbackPath
}

// providerError answers provider rejections with status and keeps
// validation and transport failures on their own mapping.
func (h *AuthHandler) providerError(c echo.Context, err error, status int) error {
	var perr *identity.ProviderError
	switch {
	case errors.As(err, &perr):
		msg := perr.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return echo.NewHTTPError(status, ErrorResponse{Message: msg}).SetInternal(err)
	case errors.Is(err, identity.ErrNotConfigured):
		h.logger.Error("identity provider not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, ErrorResponse{Message: "authentication unavailable"})
	default:
		return toHTTPError(c, err)
	}
}
