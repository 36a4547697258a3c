package config_test

import (
	"os"
	"path/filepath"
	"restaurant-auth/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  accessSecret: file-access
  refreshSecret: file-refresh
  accessTokenTTL: 10m
rateLimit:
  login:
    max: 3
    window: 1m
`)
	t.Setenv("AUTH_JWT_REFRESH_SECRET", "env-refresh")
	t.Setenv("AUTH_SERVER_ADDR", ":9090")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-access", cfg.JWT.AccessSecret)
	assert.Equal(t, "env-refresh", cfg.JWT.RefreshSecret)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTokenTTL.Std())
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTokenTTL.Std())
	assert.Equal(t, 3, cfg.RateLimit.Login.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Login.Window.Std())
	assert.Equal(t, config.FingerprintPolicyWarn, cfg.Session.FingerprintPolicy)
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_ACCESS_SECRET", "a")
	t.Setenv("AUTH_JWT_REFRESH_SECRET", "b")
	t.Setenv("AUTH_DATABASE_DRIVER", "memory")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.Database.Driver)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := writeConfig(t, `
jwt:
  accessTokenTTL: fifteen
`)
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.AppConfig {
		cfg := config.Default()
		cfg.JWT.AccessSecret = "access"
		cfg.JWT.RefreshSecret = "refresh"
		cfg.Database.Driver = config.DriverMemory
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *config.AppConfig)
		wantErr bool
	}{
		{"valid", func(cfg *config.AppConfig) {}, false},
		{"empty secret", func(cfg *config.AppConfig) { cfg.JWT.AccessSecret = "" }, true},
		{"same secrets", func(cfg *config.AppConfig) { cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret }, true},
		{"access ttl too long", func(cfg *config.AppConfig) { cfg.JWT.AccessTokenTTL = cfg.JWT.RefreshTokenTTL }, true},
		{"remember me shorter", func(cfg *config.AppConfig) { cfg.JWT.RememberMeRefreshTTL = config.Duration(time.Hour) }, true},
		{"zero login limit", func(cfg *config.AppConfig) { cfg.RateLimit.Login.Max = 0 }, true},
		{"unknown policy", func(cfg *config.AppConfig) { cfg.Session.FingerprintPolicy = "maybe" }, true},
		{"unknown driver", func(cfg *config.AppConfig) { cfg.Database.Driver = "mongo" }, true},
		{"postgres without dsn", func(cfg *config.AppConfig) { cfg.Database.Driver = config.DriverPostgres }, true},
		{"empty cookie name", func(cfg *config.AppConfig) { cfg.Cookie.Name = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
