// Package config provides configuration loading for the storefront server and tools.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Development secrets used when nothing else is configured. Validate rejects
// them outside the dev environment.
const (
	DevAccessSecret  = "dev-access-secret"
	DevRefreshSecret = "dev-refresh-secret"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Login     LoginConfig     `mapstructure:"login"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"` // dev, prod
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig locates the JSON documents.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// AuthConfig holds token secrets and lifetimes. TTLs take Go durations or
// days, e.g. "5m", "168h", "7d".
type AuthConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

// LoginConfig controls the failed-login lockout.
type LoginConfig struct {
	Window        time.Duration `mapstructure:"window"`
	MaxFails      int           `mapstructure:"max_fails"`
	BlockFor      time.Duration `mapstructure:"block_for"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig controls per-client request throttling. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// CORSConfig lists allowed origins; "*" reflects any origin.
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// SeedConfig holds defaults for the user seeder.
type SeedConfig struct {
	UsersCount    int    `mapstructure:"users_count"`
	UsersPassword string `mapstructure:"users_password"`
}

// Load reads configuration from an optional config.yaml and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// STOREFRONT_SERVER_PORT style overrides for every key
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Short names used by deployment scripts
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.environment", "APP_ENV")
	_ = v.BindEnv("storage.data_dir", "DATA_DIR")
	_ = v.BindEnv("auth.access_secret", "JWT_ACCESS_SECRET")
	_ = v.BindEnv("auth.refresh_secret", "JWT_REFRESH_SECRET")
	_ = v.BindEnv("auth.access_ttl", "JWT_ACCESS_TTL")
	_ = v.BindEnv("auth.refresh_ttl", "JWT_REFRESH_TTL")
	_ = v.BindEnv("cors.origins", "CORS_ORIGINS")
	_ = v.BindEnv("seed.users_count", "SEED_USERS_COUNT")
	_ = v.BindEnv("seed.users_password", "SEED_USERS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(durationHook(), commaListHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// parseDuration accepts Go durations ("90s", "168h") and whole or
// fractional days ("7d", "1.5d").
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	return time.ParseDuration(raw)
}

func durationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != durationType {
			return data, nil
		}
		return parseDuration(reflect.ValueOf(data).String())
	}
}

// commaListHook splits env-style "a, b" strings into trimmed, non-empty items.
func commaListHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
			return data, nil
		}
		items := []string{}
		for _, part := range strings.Split(reflect.ValueOf(data).String(), ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	}
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.environment", "dev")

	v.SetDefault("storage.data_dir", "./data")

	v.SetDefault("auth.access_secret", DevAccessSecret)
	v.SetDefault("auth.refresh_secret", DevRefreshSecret)
	v.SetDefault("auth.access_ttl", "5m")
	v.SetDefault("auth.refresh_ttl", "168h") // 7 days

	v.SetDefault("login.window", "15m")
	v.SetDefault("login.max_fails", 5)
	v.SetDefault("login.block_for", "15m")
	v.SetDefault("login.sweep_interval", "1m")

	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.origins", []string{"*"})

	v.SetDefault("seed.users_count", 25)
	v.SetDefault("seed.users_password", "password123")
}

// IsDev reports whether the server runs in the development environment.
func (c *Config) IsDev() bool { return c.Server.Environment == "dev" }

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Storage.DataDir == "" {
		problems = append(problems, "storage.data_dir is empty")
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		problems = append(problems, "token secrets must be set")
	} else if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		problems = append(problems, "access and refresh secrets must differ")
	}
	if !c.IsDev() && (c.Auth.AccessSecret == DevAccessSecret || c.Auth.RefreshSecret == DevRefreshSecret) {
		problems = append(problems, "development secrets are not allowed outside dev")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		problems = append(problems, "token TTLs must be positive")
	}
	if c.Login.MaxFails < 0 {
		problems = append(problems, "login.max_fails must not be negative")
	}
	if c.Login.MaxFails > 0 && (c.Login.Window <= 0 || c.Login.BlockFor <= 0) {
		problems = append(problems, "login.window and login.block_for must be positive")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		problems = append(problems, "rate_limit values must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
