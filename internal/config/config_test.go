package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, DevAccessSecret, cfg.Auth.AccessSecret)
	assert.Equal(t, DevRefreshSecret, cfg.Auth.RefreshSecret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 5, cfg.Login.MaxFails)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 25, cfg.Seed.UsersCount)
	assert.Equal(t, "password123", cfg.Seed.UsersPassword)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("DATA_DIR", "/var/lib/storefront")
	t.Setenv("JWT_ACCESS_SECRET", "a-secret")
	t.Setenv("JWT_REFRESH_SECRET", "r-secret")
	t.Setenv("JWT_ACCESS_TTL", "90s")
	t.Setenv("JWT_REFRESH_TTL", "24h")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SEED_USERS_COUNT", "7")
	t.Setenv("STOREFRONT_LOGIN_MAX_FAILS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/var/lib/storefront", cfg.Storage.DataDir)
	assert.Equal(t, "a-secret", cfg.Auth.AccessSecret)
	assert.Equal(t, "r-secret", cfg.Auth.RefreshSecret)
	assert.Equal(t, 90*time.Second, cfg.Auth.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	assert.Equal(t, 7, cfg.Seed.UsersCount)
	assert.Equal(t, 3, cfg.Login.MaxFails)
}

func TestLoad_DayDurationsAndSpacedOrigins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("JWT_REFRESH_TTL", "7d")
	t.Setenv("STOREFRONT_LOGIN_BLOCK_FOR", "0.5d")
	t.Setenv("CORS_ORIGINS", " https://a.example , https://b.example,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 12*time.Hour, cfg.Login.BlockFor)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_REFRESH_TTL", "sevend")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"90s", 90 * time.Second, true},
		{"168h", 168 * time.Hour, true},
		{"7d", 7 * 24 * time.Hour, true},
		{" 1.5d ", 36 * time.Hour, true},
		{"d", 0, false},
		{"7days", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "server:\n  port: 9000\n  environment: prod\nauth:\n  access_secret: file-a\n  refresh_secret: file-r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "file-a", cfg.Auth.AccessSecret)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 3000, Environment: "dev"},
			Storage: StorageConfig{DataDir: "data"},
			Auth:    AuthConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour},
			Login:   LoginConfig{Window: time.Minute, MaxFails: 5, BlockFor: time.Minute},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"empty secret", func(c *Config) { c.Auth.RefreshSecret = "" }},
		{"same secrets", func(c *Config) { c.Auth.RefreshSecret = c.Auth.AccessSecret }},
		{"dev secret in prod", func(c *Config) {
			c.Server.Environment = "prod"
			c.Auth.AccessSecret = DevAccessSecret
		}},
		{"access ttl", func(c *Config) { c.Auth.AccessTTL = 0 }},
		{"refresh ttl", func(c *Config) { c.Auth.RefreshTTL = -time.Second }},
		{"max fails", func(c *Config) { c.Login.MaxFails = -1 }},
		{"login window", func(c *Config) { c.Login.Window = 0 }},
		{"rate limit", func(c *Config) { c.RateLimit.RPS = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	c := valid()
	c.Login = LoginConfig{MaxFails: 0}
	assert.NoError(t, c.Validate(), "lockout disabled needs no window")
}
