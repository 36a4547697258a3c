package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

// NewRedisClient : ошибка пинга не фатальна, лимитер и deny-list работают в деградированном режиме
func NewRedisClient(cfg *RedisConfig) (*RedisClient, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("не указан адрес Redis")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Second,
		ReadTimeout:  cfg.CacheTimeout.Std(),
		WriteTimeout: cfg.CacheTimeout.Std(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis недоступен при старте, кэш будет работать в деградированном режиме", "addr", cfg.Addr, "error", err)
	} else {
		slog.Info("подключение к Redis успешно выполнено", "addr", cfg.Addr)
	}

	return &RedisClient{Client: client}, nil
}

func (c *RedisClient) Close() error {
	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия соединения с Redis: %w", err)
	}
	return nil
}
