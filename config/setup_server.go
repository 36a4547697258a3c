package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	FingerprintPolicyOff    = "off"
	FingerprintPolicyWarn   = "warn"
	FingerprintPolicyStrict = "strict"
)

type AppConfig struct {
	Server         ServerConfig    `yaml:"server"`
	Database       DatabaseConfig  `yaml:"database"`
	Redis          RedisConfig     `yaml:"redis"`
	JWT            JWTConfig       `yaml:"jwt"`
	Session        SessionConfig   `yaml:"session"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Cookie         CookieConfig    `yaml:"cookie"`
	Log            LogConfig       `yaml:"log"`
	BootstrapUsers []BootstrapUser `yaml:"bootstrapUsers"`
}

// Default : значения, поверх которых накладываются файл и переменные окружения
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			StoreTimeout: Duration(2 * time.Second),
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			CacheTimeout: Duration(200 * time.Millisecond),
		},
		JWT: JWTConfig{
			Issuer:               "restaurant-auth",
			AccessTokenTTL:       Duration(15 * time.Minute),
			RefreshTokenTTL:      Duration(24 * time.Hour),
			RememberMeRefreshTTL: Duration(7 * 24 * time.Hour),
		},
		Session: SessionConfig{
			FingerprintPolicy: FingerprintPolicyWarn,
		},
		RateLimit: RateLimitConfig{
			Login:   LimitPolicy{Max: 5, Window: Duration(15 * time.Minute)},
			LoginIP: LimitPolicy{Max: 50, Window: Duration(15 * time.Minute)},
			Refresh: LimitPolicy{Max: 30, Window: Duration(time.Minute)},
		},
		Cookie: CookieConfig{
			Name:   "refresh_token",
			Path:   "/auth",
			Secure: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig : читает yaml, затем переменные окружения AUTH_*, затем валидирует результат.
// Отсутствующий файл не ошибка, если все обязательные значения пришли из окружения.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("jwt: accessSecret и refreshSecret обязательны"))
	} else if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("jwt: accessSecret и refreshSecret должны различаться"))
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.AccessTokenTTL >= c.JWT.RefreshTokenTTL {
		errs = append(errs, errors.New("jwt: accessTokenTTL должен быть положительным и меньше refreshTokenTTL"))
	}
	if c.JWT.RememberMeRefreshTTL < c.JWT.RefreshTokenTTL {
		errs = append(errs, errors.New("jwt: rememberMeRefreshTTL не может быть меньше refreshTokenTTL"))
	}

	for name, policy := range map[string]LimitPolicy{
		"login":   c.RateLimit.Login,
		"loginIP": c.RateLimit.LoginIP,
		"refresh": c.RateLimit.Refresh,
	} {
		if policy.Max <= 0 || policy.Window <= 0 {
			errs = append(errs, fmt.Errorf("rateLimit.%s: max и window должны быть положительными", name))
		}
	}

	switch c.Session.FingerprintPolicy {
	case FingerprintPolicyOff, FingerprintPolicyWarn, FingerprintPolicyStrict:
	default:
		errs = append(errs, fmt.Errorf("session: неизвестная fingerprintPolicy %q", c.Session.FingerprintPolicy))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database: dsn обязателен для драйвера postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: неизвестный драйвер %q", c.Database.Driver))
	}

	if c.Cookie.Name == "" {
		errs = append(errs, errors.New("cookie: name обязателен"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("некорректная конфигурация: %w", errors.Join(errs...))
	}
	return nil
}

func SetupServer(cfg *ServerConfig) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}

	return server, router
}

func SetupDatabase(cfg *DatabaseConfig) (*Database, error) {
	return NewDatabaseConnection(cfg.Driver, cfg.DSN)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
