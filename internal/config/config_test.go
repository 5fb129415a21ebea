package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("STORAGE_S3_BUCKET", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("AUTH_BCRYPT_COST", "")
	t.Setenv("REDIS_DB", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "0.0.0.0:3000", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "books", cfg.Storage.KeyPrefix)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_BucketNeedsPublicURL(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "0")
	t.Setenv("STORAGE_S3_BUCKET", "covers")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_TrimsPublicURL(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "0")
	t.Setenv("STORAGE_S3_BUCKET", "covers")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/covers/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/covers", cfg.Storage.PublicBaseURL)
}

func TestDurations_NonPositiveDisable(t *testing.T) {
	assert.Zero(t, AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
	assert.Zero(t, CacheConfig{ProfileTTLSeconds: -1}.ProfileTTL())
	assert.Equal(t, time.Minute, CacheConfig{ProfileTTLSeconds: 60}.ProfileTTL())
}
