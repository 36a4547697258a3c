package repository

import (
	"context"
	"fmt"
	"restaurant-auth/config"
	"time"
)

type CacheRepository struct {
	client *config.RedisClient
}

func NewCacheRepository(rdb *config.RedisClient) *CacheRepository {
	return &CacheRepository{rdb}
}

// RevokeToken : запись в deny-list живет ровно столько, сколько оставалось жить токену
func (r *CacheRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	cmd := r.client.Client.Set(ctx, r.denyKey(jti), "1", ttl)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("ошибка записи в deny-list Redis: %w", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("неожиданный ответ Redis: %s", cmd.Val())
	}
	return nil
}

func (r *CacheRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Client.Exists(ctx, r.denyKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка чтения deny-list Redis: %w", err)
	}
	return n > 0, nil
}

// Increment : INCR и PEXPIRE в одной транзакции, чтобы счетчик не остался без TTL
func (r *CacheRepository) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.client.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ошибка инкремента счетчика %s в Redis: %w", key, err)
	}
	return incr.Val(), nil
}

func (r *CacheRepository) denyKey(jti string) string {
	return fmt.Sprintf("denylist:jti:%s", jti)
}
