package service

import (
	"context"
	"fmt"
	"log/slog"
	"restaurant-auth/config"
	"restaurant-auth/internal/metrics"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"time"
)

// RateLimiter : счетчики фиксированного окна в Redis.
// Ключ счетчика {scope}:{identity}:{номер окна}, TTL равен длине окна.
// При недоступности кэша запрос пропускается, событие логируется как деградация.
type RateLimiter struct {
	counters     ports.CounterStore
	cacheTimeout time.Duration
	now          func() time.Time
}

func NewRateLimiter(counters ports.CounterStore, cacheTimeout time.Duration) *RateLimiter {
	return &RateLimiter{
		counters:     counters,
		cacheTimeout: cacheTimeout,
		now:          time.Now,
	}
}

func (l *RateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

func (l *RateLimiter) windowBounds(window time.Duration) (int64, time.Time) {
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	index := l.now().UnixMilli() / windowMs
	return index, time.UnixMilli((index + 1) * windowMs).UTC()
}

// Increment : увеличивает счетчик текущего окна для key и возвращает новое значение
func (l *RateLimiter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	index, _ := l.windowBounds(window)

	if l.cacheTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cacheTimeout)
		defer cancel()
	}

	return l.counters.Increment(ctx, fmt.Sprintf("%s:%d", key, index), window)
}

// CheckLimit : засчитывает попытку и сообщает, укладывается ли она в max за окно
func (l *RateLimiter) CheckLimit(ctx context.Context, key string, max int, window time.Duration) model.LimitResult {
	_, resetAt := l.windowBounds(window)

	count, err := l.Increment(ctx, key, window)
	if err != nil {
		slog.Warn("лимитер работает в деградированном режиме, запрос пропущен",
			"key", key,
			"error", err,
		)
		metrics.DegradedTotal.WithLabelValues("rate_limiter").Inc()
		return model.LimitResult{
			Allowed:   true,
			Limit:     max,
			Remaining: max,
			ResetAt:   resetAt,
			Degraded:  true,
		}
	}

	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return model.LimitResult{
		Allowed:   count <= int64(max),
		Limit:     max,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Allow : CheckLimit по политике из конфигурации. Превышение возвращается как *model.RateLimitError.
func (l *RateLimiter) Allow(ctx context.Context, scope, identity string, policy config.LimitPolicy) (model.LimitResult, error) {
	result := l.CheckLimit(ctx, scope+":"+identity, policy.Max, policy.Window.Std())
	if !result.Allowed {
		metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
		return result, &model.RateLimitError{Scope: scope, ResetAt: result.ResetAt, Limit: result.Limit}
	}
	return result, nil
}
