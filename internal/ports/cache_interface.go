package ports

import (
	"context"
	"time"
)

// DenyList : Redis слой для отозванных access токенов
type DenyList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// CounterStore : Redis слой для счетчиков лимитера
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
