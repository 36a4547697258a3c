package handler

import (
	"context"
	"log/slog"
	"net/http"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/model/requestresponse"
	"restaurant-auth/internal/ports"
	"restaurant-auth/internal/security"
	"restaurant-auth/internal/util"
	"strconv"
	"strings"
	"time"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
	limiter ports.RateLimiter
	cfg     *config.AppConfig
}

func NewAuthenticationHandler(
	authenticationService ports.AuthenticationService,
	limiter ports.RateLimiter,
	cfg *config.AppConfig,
) *AuthenticationHandler {
	return &AuthenticationHandler{
		authenticationService,
		limiter,
		cfg,
	}
}

func (h *AuthenticationHandler) clientInfo(r *http.Request) model.ClientInfo {
	return model.ClientInfo{
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		IPAddress:      util.ClientIP(r, h.cfg.Server.TrustProxyHeaders),
	}
}

// allow : засчитывает попытку в лимитере и пишет X-RateLimit-* заголовки. false означает, что ответ 429 уже отправлен.
func (h *AuthenticationHandler) allow(ctx context.Context, w http.ResponseWriter, scope, identity string, policy config.LimitPolicy) bool {
	result, err := h.limiter.Allow(ctx, scope, identity, policy)
	setRateLimitHeaders(w, result)
	if err != nil {
		slog.Info("запрос отклонен лимитером", "scope", scope)
		sendRateLimited(w, err)
		return false
	}
	return true
}

func (h *AuthenticationHandler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    token,
		Path:     h.cfg.Cookie.Path,
		Domain:   h.cfg.Cookie.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthenticationHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    "",
		Path:     h.cfg.Cookie.Path,
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func principalOrUnauthorized(w http.ResponseWriter, r *http.Request) (*model.Principal, bool) {
	principal, err := security.PrincipalFromContext(r.Context())
	if err != nil {
		sendErrorResponse(w, http.StatusUnauthorized, model.CodeInvalidToken, "не авторизован")
		return nil, false
	}
	return principal, true
}

// Login godoc
// @Summary Аутентификация пользователя
// @Description Создает сессию и выдает первую пару токенов. Refresh токен дополнительно ставится в HttpOnly cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.LoginResponse "Успешная аутентификация"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный логин или пароль"
// @Failure 429 {object} requestresponse.ErrorResponse "Слишком много попыток"
// @Failure 503 {object} requestresponse.ErrorResponse "Хранилище недоступно"
// @Router /auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req requestresponse.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	tenantID := strings.TrimSpace(req.TenantID)
	if email == "" || req.Password == "" {
		sendErrorResponse(w, http.StatusBadRequest, model.CodeValidationError, "email и password обязательны")
		return
	}

	client := h.clientInfo(r)
	if !h.allow(ctx, w, "login_ip", client.IPAddress, h.cfg.RateLimit.LoginIP) {
		return
	}
	// счетчик по одному email: tenantId необязателен, и с ним и без него вход может вести в ту же учетную запись
	if !h.allow(ctx, w, "login", email, h.cfg.RateLimit.Login) {
		return
	}

	result, err := h.AuthenticationService.Login(ctx, model.LoginInput{
		Email:      email,
		Password:   req.Password,
		TenantID:   tenantID,
		RememberMe: req.RememberMe,
		Client:     client,
	})
	if err != nil {
		code := model.CodeOf(err)
		switch code {
		case model.CodeValidationError, model.CodeStoreUnavailable:
			sendServiceError(w, err)
		case model.CodeInvalidCredentials:
			sendErrorResponse(w, http.StatusUnauthorized, code, "неверный логин или пароль")
		default:
			slog.Error("ошибка входа", "error", err)
			sendErrorResponse(w, http.StatusInternalServerError, model.CodeInternal, "внутренняя ошибка сервера")
		}
		return
	}

	h.setRefreshCookie(w, result.Pair.RefreshToken, result.Pair.RefreshExpiresAt)
	util.WriteJSON(w, http.StatusOK, requestresponse.LoginResponse{
		User:         requestresponse.NewUserData(result.User),
		SessionID:    result.Session.SessionID,
		AccessToken:  result.Pair.AccessToken,
		RefreshToken: result.Pair.RefreshToken,
		ExpiresIn:    result.Pair.ExpiresIn(time.Now()),
	})
}

// RefreshToken godoc
// @Summary Обновление токенов
// @Description Обменивает refresh токен (из тела или cookie) на новую пару. Повторное использование уже обмененного токена отзывает сессию.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest false "Тело запроса"
// @Success 200 {object} requestresponse.RefreshTokenResponse "Новые access и refresh токены"
// @Failure 400 {object} requestresponse.ErrorResponse "Неверный JSON"
// @Failure 401 {object} requestresponse.ErrorResponse "REFRESH_FAILED, причина в поле reason"
// @Failure 403 {object} requestresponse.ErrorResponse "TOKEN_REUSE_DETECTED"
// @Failure 429 {object} requestresponse.ErrorResponse "Слишком много попыток"
// @Failure 503 {object} requestresponse.ErrorResponse "Хранилище недоступно"
// @Router /auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req requestresponse.RefreshTokenRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		return
	}

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		if cookie, err := r.Cookie(h.cfg.Cookie.Name); err == nil {
			refreshToken = cookie.Value
		}
	}
	if refreshToken == "" {
		sendErrorResponse(w, http.StatusBadRequest, model.CodeValidationError, "refresh токен не передан")
		return
	}

	client := h.clientInfo(r)
	if !h.allow(ctx, w, "refresh", client.IPAddress, h.cfg.RateLimit.Refresh) {
		return
	}

	pair, err := h.AuthenticationService.Refresh(ctx, refreshToken, client)
	if err != nil {
		slog.Info("refresh отклонен", "code", model.CodeOf(err), "error", err)
		if code := model.CodeOf(err); code != model.CodeStoreUnavailable && code != model.CodeInternal {
			h.clearRefreshCookie(w)
		}
		sendRefreshFailure(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	util.WriteJSON(w, http.StatusOK, requestresponse.RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn(time.Now()),
	})
}

// Logout godoc
// @Summary Завершение сессии
// @Description Отзывает текущую сессию, а при logoutAll все остальные сессии пользователя. Access токены отозванных сессий попадают в deny-list.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LogoutRequest false "Тело запроса"
// @Success 200 {object} requestresponse.RevokeResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 503 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req requestresponse.LogoutRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		return
	}

	revoked, err := h.AuthenticationService.Logout(r.Context(), principal, req.LogoutAll, util.ClientIP(r, h.cfg.Server.TrustProxyHeaders))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	if !req.LogoutAll {
		h.clearRefreshCookie(w)
	}
	util.WriteJSON(w, http.StatusOK, requestresponse.RevokeResponse{Revoked: revoked})
}

// Revoke godoc
// @Summary Отзыв сессий
// @Description Отзывает сессию по sessionId, все сессии пользователя (revokeAll) или сессии другого пользователя арендатора (userId, только owner и manager).
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RevokeRequest true "Тело запроса"
// @Success 200 {object} requestresponse.RevokeResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 503 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/revoke [post]
func (h *AuthenticationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req requestresponse.RevokeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		return
	}

	revoked, err := h.AuthenticationService.Revoke(r.Context(), principal, model.RevokeInput{
		SessionID: req.SessionID,
		RevokeAll: req.RevokeAll,
		UserUUID:  req.UserID,
		Reason:    req.Reason,
	}, util.ClientIP(r, h.cfg.Server.TrustProxyHeaders))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	selfTarget := req.UserID == "" || req.UserID == principal.UserUUID
	if selfTarget && (req.SessionID == principal.SessionID || (req.SessionID == "" && req.RevokeAll)) {
		h.clearRefreshCookie(w)
	}
	util.WriteJSON(w, http.StatusOK, requestresponse.RevokeResponse{Revoked: revoked})
}

// ListSessions godoc
// @Summary Список сессий
// @Description Активные сессии текущего пользователя, текущая помечена isCurrent. includeRevoked=true добавляет отозванные.
// @Tags Authentication
// @Produce json
// @Param includeRevoked query bool false "Показывать отозванные сессии"
// @Success 200 {object} requestresponse.SessionsResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 503 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/sessions [get]
func (h *AuthenticationHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	includeRevoked := false
	if raw := r.URL.Query().Get("includeRevoked"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			sendErrorResponse(w, http.StatusBadRequest, model.CodeValidationError, "includeRevoked должен быть true или false")
			return
		}
		includeRevoked = parsed
	}

	sessions, err := h.AuthenticationService.ListSessions(r.Context(), principal, includeRevoked)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.SessionsResponse{Sessions: sessions})
}

// GetCurrentUser godoc
// @Summary Текущий пользователь
// @Description Личность, подтвержденная access токеном: пользователь, арендатор, роль, сессия и права роли
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthenticationHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.CurrentUserResponse{
		UserUUID:     principal.UserUUID,
		TenantID:     principal.TenantID,
		Role:         principal.Role,
		SessionID:    principal.SessionID,
		Capabilities: principal.Role.Capabilities(),
	})
}
