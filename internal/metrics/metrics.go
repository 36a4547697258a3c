package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restaurant_auth"

var (
	LoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_total",
		Help:      "Попытки входа по результату.",
	}, []string{"outcome"})

	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Попытки ротации refresh токена по результату.",
	}, []string{"outcome"})

	TokenReuseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_reuse_detected_total",
		Help:      "Обнаруженные повторные использования refresh токена.",
	})

	SessionsRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Отозванные сессии по причине.",
	}, []string{"reason"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Запросы, отклоненные лимитером.",
	}, []string{"scope"})

	DegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "degraded_mode_total",
		Help:      "Обращения к кэшу, завершившиеся ошибкой и пропущенные без проверки.",
	}, []string{"component"})
)

func Outcome(code string) string {
	if code == "" {
		return "success"
	}
	return code
}

func Handler() http.Handler {
	return promhttp.Handler()
}
