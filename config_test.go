package identity_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, testConfig().Validate())
	})

	t.Run("missing signing key", func(t *testing.T) {
		cfg := testConfig()
		cfg.SigningKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non positive access ttl", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessTTL = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("non positive refresh ttl", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshTTL = -time.Minute
		assert.Error(t, cfg.Validate())
	})

	t.Run("refresh shorter than access", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessTTL = time.Hour
		cfg.RefreshTTL = time.Minute
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", "env-signing-key")
	t.Setenv("IDENTITY_ACCESS_TTL", "15m")
	t.Setenv("IDENTITY_REFRESH_TTL", "72h")
	t.Setenv("IDENTITY_ISSUER", "env-issuer")

	cfg, err := identity.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "env-signing-key", cfg.SigningKey)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "env-issuer", cfg.Issuer)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", "env-signing-key")

	cfg, err := identity.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "go-identity", cfg.Issuer)
}

func TestLoadConfigRequiresSigningKey(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", "")

	_, err := identity.LoadConfig("")
	assert.Error(t, err)
}
