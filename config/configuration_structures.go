package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration : time.Duration, который читается из yaml и env как строка вида "15m"
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type ServerConfig struct {
	Addr              string   `yaml:"addr" env:"AUTH_SERVER_ADDR"`
	ReadTimeout       Duration `yaml:"readTimeout"`
	WriteTimeout      Duration `yaml:"writeTimeout"`
	ShutdownTimeout   Duration `yaml:"shutdownTimeout"`
	TrustProxyHeaders bool     `yaml:"trustProxyHeaders"`
}

type DatabaseConfig struct {
	// Driver : postgres или memory
	Driver       string   `yaml:"driver" env:"AUTH_DATABASE_DRIVER"`
	DSN          string   `yaml:"dsn" env:"AUTH_DATABASE_DSN"`
	StoreTimeout Duration `yaml:"storeTimeout"`
}

type RedisConfig struct {
	Addr         string   `yaml:"addr" env:"AUTH_REDIS_ADDR"`
	Password     string   `yaml:"password" env:"AUTH_REDIS_PASSWORD"`
	DB           int      `yaml:"db"`
	CacheTimeout Duration `yaml:"cacheTimeout"`
}

type JWTConfig struct {
	Issuer               string   `yaml:"issuer"`
	AccessSecret         string   `yaml:"accessSecret" env:"AUTH_JWT_ACCESS_SECRET"`
	RefreshSecret        string   `yaml:"refreshSecret" env:"AUTH_JWT_REFRESH_SECRET"`
	AccessTokenTTL       Duration `yaml:"accessTokenTTL"`
	RefreshTokenTTL      Duration `yaml:"refreshTokenTTL"`
	RememberMeRefreshTTL Duration `yaml:"rememberMeRefreshTTL"`
}

type SessionConfig struct {
	// FingerprintIncludeIP : включать ли IP клиента в отпечаток устройства.
	// По умолчанию выключено, чтобы смена IP в мобильной сети не ломала сессию.
	FingerprintIncludeIP bool `yaml:"fingerprintIncludeIP"`
	// FingerprintPolicy : off, warn или strict
	FingerprintPolicy string `yaml:"fingerprintPolicy"`
}

type LimitPolicy struct {
	Max    int      `yaml:"max"`
	Window Duration `yaml:"window"`
}

type RateLimitConfig struct {
	Login   LimitPolicy `yaml:"login"`
	LoginIP LimitPolicy `yaml:"loginIP"`
	Refresh LimitPolicy `yaml:"refresh"`
}

type CookieConfig struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Domain string `yaml:"domain"`
	Secure bool   `yaml:"secure"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"AUTH_LOG_LEVEL"`
}

// BootstrapUser : учетная запись, которую memory-драйвер создает при старте
type BootstrapUser struct {
	TenantID     string `yaml:"tenantId"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"passwordHash"`
}
