package security

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"restaurant-auth/internal/util"
	"strings"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
)

// AuthMiddleware : проверяет Bearer access токен и кладет Principal в контекст запроса
func AuthMiddleware(verifier ports.TokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authorizationHeader := request.Header.Get("Authorization")
			if !strings.HasPrefix(authorizationHeader, "Bearer ") {
				util.WriteError(writer, http.StatusUnauthorized, model.CodeInvalidToken, "пустой или неверный заголовок Authorization")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, "Bearer "))

			principal, err := verifier.Verify(request.Context(), token)
			if err != nil {
				slog.Debug("access токен отклонен", "error", err)
				if errors.Is(err, model.ErrStoreUnavailable) {
					util.WriteError(writer, http.StatusServiceUnavailable, model.CodeStoreUnavailable, "сервис временно недоступен")
					return
				}
				util.WriteError(writer, http.StatusUnauthorized, model.CodeOf(err), "не авторизован")
				return
			}

			req := request.WithContext(WithPrincipal(request.Context(), principal))
			next.ServeHTTP(writer, req)
		})
	}
}

func WithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

func PrincipalFromContext(ctx context.Context) (*model.Principal, error) {
	principal, ok := ctx.Value(PrincipalContextKey).(*model.Principal)
	if !ok || principal == nil {
		return nil, errors.New("пользователь не авторизован")
	}
	return principal, nil
}
