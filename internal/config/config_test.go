package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "postgres://localhost/denuncias")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ALLOW_ORIGINS", " https://painel.exemplo.com.br, ,*.exemplo.com.br ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, []string{"https://painel.exemplo.com.br", "*.exemplo.com.br"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, []string{"Authorization", "Content-Type", "X-Requested-With"}, cfg.CORS.AllowHeaders)
	assert.Contains(t, cfg.CORS.ExposeHeaders, "Content-Disposition")
	assert.Equal(t, 10*time.Minute, cfg.CORS.MaxAge)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 10, Burst: 20}, cfg.RateLimitIntake)
	assert.Equal(t, "noop", cfg.Storage.Provider)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "curto")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "quinze")

	_, err := Load()
	require.EqualError(t, err, "JWT_ACCESS_TTL inválido")
}

func TestLoadParsesAutoMigrate(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoadTrustedProxiesAndRateLimits(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")
	t.Setenv("RATE_LIMIT_INTAKE_RPS", "0.5")
	t.Setenv("RATE_LIMIT_INTAKE_BURST", "5")
	t.Setenv("CORS_EXPOSE_HEADERS", "Content-Disposition")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 2)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	assert.Equal(t, "192.168.1.10/32", cfg.TrustedProxies[1].String())
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 0.5, Burst: 5}, cfg.RateLimitIntake)
	assert.Equal(t, []string{"Content-Disposition"}, cfg.CORS.ExposeHeaders)
}

func TestLoadRejectsInvalidProxyAndRate(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRUSTED_PROXIES", "proxy.interno")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")

	t.Setenv("TRUSTED_PROXIES", "")
	t.Setenv("RATE_LIMIT_AUTH_BURST", "0")
	_, err = Load()
	require.EqualError(t, err, "RATE_LIMIT_AUTH_BURST inválido")
}
