// Package config loads and exposes application configuration (TOML).
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath          = "config.toml"
	DefaultHTTPAddr            = ":8080"
	DefaultJWTExpiresIn        = "1h"
	DefaultPGHost              = "127.0.0.1"
	DefaultPGPort              = 5432
	DefaultPGUser              = "postgres"
	DefaultPGDatabase          = "roastery"
	DefaultPGSSLMode           = "disable"
	DefaultStorageBackend      = "filesystem"
	DefaultBucket              = "coffee-images"
	DefaultFilesystemRoot      = "data/blobs"
	DefaultMaxUploadBytes      = 10 << 20
	DefaultMaxDimension        = 800
	DefaultJPEGQuality         = 80
	DefaultAcquireTimeout      = "5s"
	DefaultKeyAttempts         = 3
	DefaultCompensationTimeout = "10s"
	DefaultOrphanMinAge        = "24h"
	DefaultIdentityTimeout     = 10
)

// Storage backend names accepted in [storage].backend.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
	StorageMemory     = "memory"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Identity IdentityConfig `toml:"identity"`
	Postgres PostgresConfig `toml:"postgres"`
	Storage  StorageConfig  `toml:"storage"`
	Ingest   IngestConfig   `toml:"ingest"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address and the browser origins
// allowed by CORS. An empty origin list allows any origin.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AuthConfig holds the secret the identity provider signs access tokens with.
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// IdentityConfig points at the external identity provider (GoTrue-compatible REST API).
type IdentityConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RedirectURL    string `toml:"redirect_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Backend       string           `toml:"backend"`
	Bucket        string           `toml:"bucket"`
	PublicBaseURL string           `toml:"public_base_url"`
	Filesystem    FilesystemConfig `toml:"filesystem"`
	S3            S3Config         `toml:"s3"`
}

// FilesystemConfig holds the local blob root directory.
type FilesystemConfig struct {
	Root string `toml:"root"`
}

// S3Config holds S3-compatible endpoint credentials.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// IngestConfig tunes the image ingestion pipeline.
type IngestConfig struct {
	MaxUploadBytes      int64  `toml:"max_upload_bytes"`
	MaxWidth            int    `toml:"max_width"`
	MaxHeight           int    `toml:"max_height"`
	JPEGQuality         int    `toml:"jpeg_quality"`
	Workers             int    `toml:"workers"`
	AcquireTimeout      string `toml:"acquire_timeout"`
	KeyAttempts         int    `toml:"key_attempts"`
	CompensationTimeout string `toml:"compensation_timeout"`
	OrphanSweepCron     string `toml:"orphan_sweep_cron"`
	OrphanMinAge        string `toml:"orphan_min_age"`
}

// AcquireTimeoutDuration parses AcquireTimeout, falling back to the default on error.
func (c IngestConfig) AcquireTimeoutDuration() time.Duration {
	return parseDurationOr(c.AcquireTimeout, DefaultAcquireTimeout)
}

// CompensationTimeoutDuration parses CompensationTimeout, falling back to the default on error.
func (c IngestConfig) CompensationTimeoutDuration() time.Duration {
	return parseDurationOr(c.CompensationTimeout, DefaultCompensationTimeout)
}

// OrphanMinAgeDuration parses OrphanMinAge, falling back to the default on error.
func (c IngestConfig) OrphanMinAgeDuration() time.Duration {
	return parseDurationOr(c.OrphanMinAge, DefaultOrphanMinAge)
}

// Timeout returns the identity provider request timeout.
func (c IdentityConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultIdentityTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func parseDurationOr(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Identity: IdentityConfig{
			TimeoutSeconds: DefaultIdentityTimeout,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			Bucket:  DefaultBucket,
			Filesystem: FilesystemConfig{
				Root: DefaultFilesystemRoot,
			},
		},
		Ingest: IngestConfig{
			MaxUploadBytes:      DefaultMaxUploadBytes,
			MaxWidth:            DefaultMaxDimension,
			MaxHeight:           DefaultMaxDimension,
			JPEGQuality:         DefaultJPEGQuality,
			Workers:             runtime.NumCPU(),
			AcquireTimeout:      DefaultAcquireTimeout,
			KeyAttempts:         DefaultKeyAttempts,
			CompensationTimeout: DefaultCompensationTimeout,
			OrphanMinAge:        DefaultOrphanMinAge,
		},
	}
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch c.Storage.Backend {
	case StorageFilesystem, StorageS3, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}
	if c.Ingest.JPEGQuality <= 0 || c.Ingest.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("ingest.jpeg_quality must be in (0, 100], got %d", c.Ingest.JPEGQuality))
	}
	if c.Ingest.MaxWidth <= 0 || c.Ingest.MaxHeight <= 0 {
		errs = append(errs, errors.New("ingest.max_width and ingest.max_height must be positive"))
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("ingest.max_upload_bytes must be positive"))
	}
	if c.Ingest.KeyAttempts <= 0 {
		errs = append(errs, errors.New("ingest.key_attempts must be positive"))
	}
	return errors.Join(errs...)
}
