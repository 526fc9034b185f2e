// Package boot derives runtime settings from the loaded config and the environment.
package boot

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/memohai/roastery/internal/config"
)

// RuntimeConfig holds settings resolved at startup. Values may be overridden
// by environment variables (HTTP_ADDR, JWT_SECRET, IDENTITY_BASE_URL,
// IDENTITY_API_KEY).
type RuntimeConfig struct {
	ServerAddr          string
	JWTSecret           string
	JWTExpiresIn        time.Duration
	IdentityBaseURL     string
	IdentityAPIKey      string
	AcquireTimeout      time.Duration
	CompensationTimeout time.Duration
	OrphanMinAge        time.Duration
}

// ProvideRuntimeConfig builds RuntimeConfig from cfg and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	jwtExpiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt expires in: %w", err)
	}

	ret := &RuntimeConfig{
		ServerAddr:          cfg.Server.Addr,
		JWTSecret:           cfg.Auth.JWTSecret,
		JWTExpiresIn:        jwtExpiresIn,
		IdentityBaseURL:     cfg.Identity.BaseURL,
		IdentityAPIKey:      cfg.Identity.APIKey,
		AcquireTimeout:      cfg.Ingest.AcquireTimeoutDuration(),
		CompensationTimeout: cfg.Ingest.CompensationTimeoutDuration(),
		OrphanMinAge:        cfg.Ingest.OrphanMinAgeDuration(),
	}

	if value := os.Getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}
	if value := os.Getenv("JWT_SECRET"); value != "" {
		ret.JWTSecret = value
	}
	if value := os.Getenv("IDENTITY_BASE_URL"); value != "" {
		ret.IdentityBaseURL = value
	}
	if value := os.Getenv("IDENTITY_API_KEY"); value != "" {
		ret.IdentityAPIKey = value
	}

	if strings.TrimSpace(ret.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return ret, nil
}
