package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://dispenser.db")
	t.Setenv("PORT", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("ARCHIVE_ENABLED", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "5300", cfg.Port)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "ledger", cfg.Archive.Prefix)
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvRejectsBadTimezone(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://dispenser.db")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvArchiveNeedsBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://dispenser.db")
	t.Setenv("TIMEZONE", "")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")
	t.Setenv("R2_BUCKET_NAME", "")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("R2_BUCKET_NAME", "archive")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "archive", cfg.Archive.Bucket)
}
