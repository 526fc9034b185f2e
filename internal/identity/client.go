// Package identity delegates signup, login and email confirmation to a
// GoTrue-compatible identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/validation"
)

const (
	signupPath = "/auth/v1/signup"
	tokenPath  = "/auth/v1/token"
	maxBody    = 1 << 20
)

// Client talks to the provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger
	http    *http.Client
}

func NewClient(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		logger:  log.With(slog.String("client", "identity")),
		http:    &http.Client{Timeout: timeout},
	}
}

// Signup registers an account. The confirmation email links to redirectTo.
func (c *Client) Signup(ctx context.Context, creds Credentials, redirectTo string) (User, error) {
	creds = creds.Normalize()
	if violations := validation.Struct(creds); len(violations) > 0 {
		return User{}, apperr.Invalid(violations)
	}
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	payload := map[string]any{"email": creds.Email, "password": creds.Password}

	// The provider answers with a bare user when confirmation is pending and
	// with a session wrapping the user when it is not.
	var resp struct {
		User
		Nested *User `json:"user"`
	}
	if err := c.post(ctx, signupPath, query, payload, &resp); err != nil {
		return User{}, err
	}
	if resp.Nested != nil {
		return *resp.Nested, nil
	}
	return resp.User, nil
}

// Login exchanges an email and password for a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	creds = creds.Normalize()
	query := url.Values{"grant_type": {"password"}}
	payload := map[string]any{"email": creds.Email, "password": creds.Password}
	var session Session
	if err := c.post(ctx, tokenPath, query, payload, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// ExchangeCode trades an email-confirmation code for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Session{}, apperr.Invalid([]apperr.Violation{{Field: "code", Message: "is required"}})
	}
	query := url.Values{"grant_type": {"pkce"}}
	payload := map[string]any{"auth_code": code, "code_verifier": verifier}
	var session Session
	if err := c.post(ctx, tokenPath, query, payload, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (c *Client) post(ctx context.Context, path string, query url.Values, payload, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("close response body failed", slog.Any("error", err))
		}
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("identity response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeProviderError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

func decodeProviderError(status int, raw []byte) error {
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)
	pe := &ProviderError{Status: status, Code: body.ErrorCode}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if strings.TrimSpace(m) != "" {
			pe.Message = m
			break
		}
	}
	if pe.Message == "" {
		pe.Message = strings.TrimSpace(string(raw))
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	return pe
}
