package boot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/roastery/internal/config"
)

func TestProvideRuntimeConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "from-file"
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("JWT_SECRET", "")

	rc, err := ProvideRuntimeConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, ":9090", rc.ServerAddr)
	assert.Equal(t, "from-file", rc.JWTSecret)
	assert.Equal(t, time.Hour, rc.JWTExpiresIn)
	assert.Equal(t, 10*time.Second, rc.CompensationTimeout)
}

func TestProvideRuntimeConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := ProvideRuntimeConfig(config.Default())
	assert.Error(t, err)
}

func TestProvideRuntimeConfigBadExpiry(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "s"
	cfg.Auth.JWTExpiresIn = "soon"
	_, err := ProvideRuntimeConfig(cfg)
	assert.Error(t, err)
}
