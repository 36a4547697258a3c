package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"restaurant-auth/config"
	"restaurant-auth/internal/metrics"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"restaurant-auth/internal/security"
	"strings"
	"time"
)

const maxRevokeReasonLength = 200

type AuthenticationService struct {
	userRepository ports.UserRepository
	sessions       ports.SessionRegistry
	tokens         ports.TokenCodec
	audit          ports.AuditRecorder
	cfg            *config.AppConfig
}

func NewAuthenticationService(
	userRepository ports.UserRepository,
	sessions ports.SessionRegistry,
	tokens ports.TokenCodec,
	audit ports.AuditRecorder,
	cfg *config.AppConfig,
) *AuthenticationService {
	return &AuthenticationService{
		userRepository: userRepository,
		sessions:       sessions,
		tokens:         tokens,
		audit:          audit,
		cfg:            cfg,
	}
}

func (s *AuthenticationService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.cfg.Database.StoreTimeout.Std(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (s *AuthenticationService) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.cfg.Redis.CacheTimeout.Std(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// Login проверяет учетные данные, создает сессию и выдает первую пару токенов новой семьи.
// Любая ошибка учетных данных возвращается как model.ErrInvalidCredentials,
// чтобы по ответу нельзя было понять, существует ли email.
func (s *AuthenticationService) Login(ctx context.Context, input model.LoginInput) (result *model.LoginResult, err error) {
	defer func() {
		metrics.LoginTotal.WithLabelValues(metrics.Outcome(model.CodeOf(err))).Inc()
	}()

	email := strings.TrimSpace(input.Email)
	input.TenantID = strings.TrimSpace(input.TenantID)
	if email == "" || input.Password == "" {
		return nil, model.ValidationError("email и password обязательны")
	}

	lookupCtx, cancel := s.storeContext(ctx)
	user, err := s.userRepository.FindByEmail(lookupCtx, input.TenantID, email)
	cancel()
	if err != nil {
		if errors.Is(err, model.ErrStoreUnavailable) {
			return nil, err
		}
		security.BurnPasswordCheck(input.Password)
		s.recordLoginFailure(ctx, input, "", "unknown_user")
		return nil, model.ErrInvalidCredentials
	}

	if !security.CheckPassword(input.Password, user.PasswordHash) {
		s.recordLoginFailure(ctx, input, user.UUID, "bad_password")
		return nil, model.ErrInvalidCredentials
	}
	if !user.Role.Valid() {
		slog.Error("у пользователя неизвестная роль", "user_uuid", user.UUID, "role", user.Role)
		s.recordLoginFailure(ctx, input, user.UUID, "invalid_role")
		return nil, model.ErrInvalidCredentials
	}

	owner := model.SessionOwner{TenantID: user.TenantID, UserUUID: user.UUID}
	fingerprint := security.Fingerprint(input.Client, s.cfg.Session.FingerprintIncludeIP)

	session, err := s.sessions.CreateSession(ctx, owner, model.SessionDraft{
		DeviceFingerprint: fingerprint,
		IPAddress:         input.Client.IPAddress,
		UserAgentSummary:  security.SummarizeUserAgent(input.Client.UserAgent),
		RememberMe:        input.RememberMe,
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(model.TokenSubject{
		UserUUID:    user.UUID,
		TenantID:    user.TenantID,
		Role:        user.Role,
		SessionID:   session.SessionID,
		FamilyID:    session.FamilyID,
		Fingerprint: fingerprint,
		RememberMe:  input.RememberMe,
	})
	if err != nil {
		s.abandonSession(ctx, session)
		return nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	ok, err := s.sessions.AdvanceToken(ctx, owner, session.SessionID, model.TokenRotation{
		ExpectedTokenID:  "",
		NewTokenID:       pair.RefreshTokenID,
		NewAccessTokenID: pair.AccessTokenID,
		AccessExpiresAt:  pair.AccessExpiresAt,
	})
	if err != nil {
		s.abandonSession(ctx, session)
		return nil, err
	}
	if !ok {
		s.abandonSession(ctx, session)
		return nil, fmt.Errorf("сессия %s изменилась до выдачи первой пары токенов", session.SessionID)
	}

	session.CurrentTokenID = pair.RefreshTokenID
	session.AccessTokenID = pair.AccessTokenID
	session.AccessExpiresAt = pair.AccessExpiresAt

	s.audit.Record(ctx, model.AuditEvent{
		Action:    model.AuditLogin,
		ActorUUID: user.UUID,
		TenantID:  user.TenantID,
		SessionID: session.SessionID,
		IPAddress: input.Client.IPAddress,
		Severity:  model.SeverityInfo,
	})

	return &model.LoginResult{User: user, Session: session, Pair: pair}, nil
}

func (s *AuthenticationService) recordLoginFailure(ctx context.Context, input model.LoginInput, userUUID, reason string) {
	s.audit.Record(ctx, model.AuditEvent{
		Action:    model.AuditLoginFailed,
		ActorUUID: userUUID,
		TenantID:  input.TenantID,
		IPAddress: input.Client.IPAddress,
		Severity:  model.SeverityWarning,
		Metadata:  map[string]string{"reason": reason},
	})
}

// abandonSession : сессия без выданной пары не должна висеть в списке активных
func (s *AuthenticationService) abandonSession(ctx context.Context, session *model.Session) {
	if _, _, err := s.sessions.Revoke(ctx, session.Owner(), session.SessionID, "login_aborted"); err != nil {
		slog.Warn("не удалось отозвать незавершенную сессию", "session_id", session.SessionID, "error", err)
	}
}

// Refresh обменивает refresh токен на новую пару той же семьи.
//
// Порядок проверок:
//  1. токен декодируется, иначе model.ErrInvalidToken;
//  2. сессия существует и не отозвана, иначе model.ErrSessionRevoked;
//  3. tokenId совпадает с текущим tokenId сессии, иначе это повторное использование:
//     сессия отзывается и возвращается model.ErrTokenReuseDetected;
//  4. отпечаток устройства сверяется по политике session.fingerprintPolicy;
//  5. текущий tokenId меняется атомарным compare-and-swap. Проигранный CAS означает,
//     что тот же токен уже был использован параллельным запросом, и обрабатывается как шаг 3.
func (s *AuthenticationService) Refresh(ctx context.Context, refreshToken string, client model.ClientInfo) (pair *model.IssuedPair, err error) {
	defer func() {
		metrics.RefreshTotal.WithLabelValues(metrics.Outcome(model.CodeOf(err))).Inc()
	}()

	claims, err := s.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	owner := model.SessionOwner{TenantID: claims.TenantID, UserUUID: claims.UserUUID}
	session, err := s.sessions.FindSession(ctx, owner, claims.SessionID)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: сессия %s не найдена", model.ErrSessionRevoked, claims.SessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.IsRevoked {
		return nil, fmt.Errorf("%w: сессия %s", model.ErrSessionRevoked, session.SessionID)
	}

	if session.FamilyID != claims.FamilyID {
		return nil, fmt.Errorf("%w: семья токена не совпадает с сессией", model.ErrInvalidToken)
	}

	if claims.TokenID != session.CurrentTokenID {
		return nil, s.handleReuse(ctx, session, claims, client.IPAddress)
	}

	if err := s.checkFingerprint(ctx, session, claims, client); err != nil {
		return nil, err
	}

	lookupCtx, cancel := s.storeContext(ctx)
	user, err := s.userRepository.FindByUUID(lookupCtx, owner.TenantID, owner.UserUUID)
	cancel()
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: пользователь сессии не найден", model.ErrSessionRevoked)
	}
	if err != nil {
		return nil, err
	}

	pair, err = s.tokens.IssuePair(model.TokenSubject{
		UserUUID:    user.UUID,
		TenantID:    user.TenantID,
		Role:        user.Role,
		SessionID:   session.SessionID,
		FamilyID:    session.FamilyID,
		Fingerprint: session.DeviceFingerprint,
		RememberMe:  session.RememberMe,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	ok, err := s.sessions.AdvanceToken(ctx, owner, session.SessionID, model.TokenRotation{
		ExpectedTokenID:  claims.TokenID,
		NewTokenID:       pair.RefreshTokenID,
		NewAccessTokenID: pair.AccessTokenID,
		AccessExpiresAt:  pair.AccessExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.handleReuse(ctx, session, claims, client.IPAddress)
	}

	// у сессии одновременно действует только один access токен
	s.denyAccessToken(ctx, session.AccessTokenID, session.AccessExpiresAt)

	s.audit.Record(ctx, model.AuditEvent{
		Action:    model.AuditRefresh,
		ActorUUID: owner.UserUUID,
		TenantID:  owner.TenantID,
		SessionID: session.SessionID,
		IPAddress: client.IPAddress,
		Severity:  model.SeverityInfo,
	})

	return pair, nil
}

// handleReuse : отзывает только затронутую сессию. Остальные сессии пользователя не трогаются.
func (s *AuthenticationService) handleReuse(ctx context.Context, session *model.Session, claims *model.RefreshClaims, ipAddress string) error {
	metrics.TokenReuseTotal.Inc()
	slog.Error("обнаружено повторное использование refresh токена",
		"tenant_id", session.TenantID,
		"user_uuid", session.UserUUID,
		"session_id", session.SessionID,
		"family_id", session.FamilyID,
		"ip", ipAddress,
	)

	revokedSession, revoked, revokeErr := s.sessions.Revoke(ctx, session.Owner(), session.SessionID, model.RevokeReasonTokenReuse)

	metadata := map[string]string{
		"family_id": session.FamilyID,
		"token_id":  claims.TokenID,
	}
	if revokeErr != nil {
		metadata["revoke_error"] = revokeErr.Error()
	}
	s.audit.Record(ctx, model.AuditEvent{
		Action:    model.AuditTokenReuse,
		ActorUUID: session.UserUUID,
		TenantID:  session.TenantID,
		SessionID: session.SessionID,
		IPAddress: ipAddress,
		Severity:  model.SeverityCritical,
		Metadata:  metadata,
	})

	reuseErr := fmt.Errorf("%w: сессия %s отозвана", model.ErrTokenReuseDetected, session.SessionID)
	if revokeErr != nil {
		return errors.Join(reuseErr, fmt.Errorf("не удалось отозвать сессию: %w", revokeErr))
	}
	if revoked {
		s.denyAccessToken(ctx, revokedSession.AccessTokenID, revokedSession.AccessExpiresAt)
	}
	return reuseErr
}

func (s *AuthenticationService) checkFingerprint(ctx context.Context, session *model.Session, claims *model.RefreshClaims, client model.ClientInfo) error {
	policy := s.cfg.Session.FingerprintPolicy
	if policy == config.FingerprintPolicyOff || claims.FingerprintHash == "" {
		return nil
	}

	presented := security.Fingerprint(client, s.cfg.Session.FingerprintIncludeIP)
	if presented == claims.FingerprintHash {
		return nil
	}

	slog.Warn("отпечаток устройства при refresh не совпадает",
		"session_id", session.SessionID,
		"policy", policy,
		"ip", client.IPAddress,
	)
	s.audit.Record(ctx, model.AuditEvent{
		Action:    model.AuditFingerprintMismatch,
		ActorUUID: session.UserUUID,
		TenantID:  session.TenantID,
		SessionID: session.SessionID,
		IPAddress: client.IPAddress,
		Severity:  model.SeverityWarning,
		Metadata:  map[string]string{"policy": policy},
	})

	if policy == config.FingerprintPolicyStrict {
		return fmt.Errorf("%w: отпечаток устройства не совпадает", model.ErrInvalidToken)
	}
	return nil
}

// denyAccessToken : best-effort. Недоступный кэш означает, что токен доживет до естественного истечения.
func (s *AuthenticationService) denyAccessToken(ctx context.Context, jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}

	ctx, cancel := s.cacheContext(ctx)
	defer cancel()

	if err := s.tokens.RevokeJTI(ctx, jti, expiresAt); err != nil {
		metrics.DegradedTotal.WithLabelValues("deny_list").Inc()
		slog.Warn("не удалось добавить access токен в deny-list", "jti", jti, "error", err)
	}
}

// Verify : проверка access токена для middleware и остальных сервисов платформы.
// Хранилище сессий не читается, проверяется только deny-list. Недоступный deny-list пропускается с WARN.
func (s *AuthenticationService) Verify(ctx context.Context, accessToken string) (*model.Principal, error) {
	claims, err := s.tokens.DecodeAccess(accessToken)
	if err != nil {
		return nil, err
	}
	if !claims.Role.Valid() {
		return nil, &model.TokenError{Reason: model.TokenMalformed, Err: fmt.Errorf("неизвестная роль %q", claims.Role)}
	}

	cacheCtx, cancel := s.cacheContext(ctx)
	revoked, err := s.tokens.IsRevoked(cacheCtx, claims.TokenID)
	cancel()
	switch {
	case err != nil:
		metrics.DegradedTotal.WithLabelValues("deny_list").Inc()
		slog.Warn("deny-list недоступен, access токен принят без проверки отзыва", "jti", claims.TokenID, "error", err)
	case revoked:
		return nil, fmt.Errorf("%w: access токен отозван", model.ErrSessionRevoked)
	}

	return &model.Principal{
		UserUUID:      claims.UserUUID,
		TenantID:      claims.TenantID,
		Role:          claims.Role,
		SessionID:     claims.SessionID,
		AccessTokenID: claims.TokenID,
		ExpiresAt:     claims.ExpiresAt,
	}, nil
}

// Logout завершает текущую сессию, а при logoutAll все остальные сессии пользователя.
// Возвращает число сессий, перешедших в revoked.
func (s *AuthenticationService) Logout(ctx context.Context, principal *model.Principal, logoutAll bool, ipAddress string) (int, error) {
	owner := principal.Owner()

	if logoutAll {
		revoked, err := s.sessions.RevokeAll(ctx, owner, principal.SessionID, model.RevokeReasonLogoutAll)
		if err != nil {
			return 0, err
		}
		for _, session := range revoked {
			s.denyAccessToken(ctx, session.AccessTokenID, session.AccessExpiresAt)
		}

		s.audit.Record(ctx, model.AuditEvent{
			Action:    model.AuditLogoutAll,
			ActorUUID: principal.UserUUID,
			TenantID:  principal.TenantID,
			SessionID: principal.SessionID,
			IPAddress: ipAddress,
			Severity:  model.SeverityInfo,
			Metadata:  map[string]string{"revoked": fmt.Sprint(len(revoked))},
		})
		return len(revoked), nil
	}

	session, revoked, err := s.sessions.Revoke(ctx, owner, principal.SessionID, model.RevokeReasonLogout)
	if err != nil {
		return 0, err
	}

	s.denyAccessToken(ctx, principal.AccessTokenID, principal.ExpiresAt)
	if session.AccessTokenID != principal.AccessTokenID {
		s.denyAccessToken(ctx, session.AccessTokenID, session.AccessExpiresAt)
	}

	s.audit.Record(ctx, model.AuditEvent{
		Action:    model.AuditLogout,
		ActorUUID: principal.UserUUID,
		TenantID:  principal.TenantID,
		SessionID: principal.SessionID,
		IPAddress: ipAddress,
		Severity:  model.SeverityInfo,
	})

	if revoked {
		return 1, nil
	}
	return 0, nil
}

// Revoke : точечный отзыв. sessionId отзывает одну сессию, revokeAll все сессии пользователя
// включая текущую, userId позволяет владельцу или менеджеру отозвать сессии другого пользователя своего арендатора.
func (s *AuthenticationService) Revoke(ctx context.Context, principal *model.Principal, input model.RevokeInput, ipAddress string) (int, error) {
	reason := strings.TrimSpace(input.Reason)
	if len(reason) > maxRevokeReasonLength {
		return 0, model.ValidationError("reason слишком длинный")
	}

	target := principal.Owner()
	if input.UserUUID != "" && input.UserUUID != principal.UserUUID {
		if !principal.Role.Can(model.CapSessionsRevokeTenant) {
			return 0, fmt.Errorf("%w: роль %s не может отзывать чужие сессии", model.ErrForbidden, principal.Role)
		}

		lookupCtx, cancel := s.storeContext(ctx)
		_, err := s.userRepository.FindByUUID(lookupCtx, principal.TenantID, input.UserUUID)
		cancel()
		if errors.Is(err, model.ErrUserNotFound) {
			return 0, model.ValidationError("пользователь не найден в арендаторе")
		}
		if err != nil {
			return 0, err
		}

		target = model.SessionOwner{TenantID: principal.TenantID, UserUUID: input.UserUUID}
		if reason == "" {
			reason = model.RevokeReasonAdmin
		}
	}
	if reason == "" {
		reason = model.RevokeReasonUser
	}

	event := model.AuditEvent{
		ActorUUID: principal.UserUUID,
		TenantID:  principal.TenantID,
		IPAddress: ipAddress,
		Severity:  model.SeverityInfo,
		Metadata:  map[string]string{"reason": reason, "target_user_uuid": target.UserUUID},
	}
	if target.UserUUID != principal.UserUUID {
		event.Severity = model.SeverityWarning
	}

	switch {
	case input.SessionID != "":
		session, revoked, err := s.sessions.Revoke(ctx, target, input.SessionID, reason)
		if err != nil {
			return 0, err
		}
		if revoked {
			s.denyAccessToken(ctx, session.AccessTokenID, session.AccessExpiresAt)
		}

		event.Action = model.AuditRevoke
		event.SessionID = input.SessionID
		s.audit.Record(ctx, event)
		if revoked {
			return 1, nil
		}
		return 0, nil

	case input.RevokeAll || target.UserUUID != principal.UserUUID:
		revoked, err := s.sessions.RevokeAll(ctx, target, "", reason)
		if err != nil {
			return 0, err
		}
		for _, session := range revoked {
			s.denyAccessToken(ctx, session.AccessTokenID, session.AccessExpiresAt)
		}

		event.Action = model.AuditRevokeAll
		event.SessionID = principal.SessionID
		event.Metadata["revoked"] = fmt.Sprint(len(revoked))
		s.audit.Record(ctx, event)
		return len(revoked), nil

	default:
		return 0, model.ValidationError("нужен sessionId, revokeAll или userId")
	}
}

// ListSessions : сессии текущего пользователя, текущая помечена IsCurrent
func (s *AuthenticationService) ListSessions(ctx context.Context, principal *model.Principal, includeRevoked bool) ([]model.SessionView, error) {
	owner := principal.Owner()
	s.sessions.TouchActivity(ctx, owner, principal.SessionID)

	sessions, err := s.sessions.ListSessions(ctx, owner, includeRevoked)
	if err != nil {
		return nil, err
	}

	views := make([]model.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, sessions[i].View(principal.SessionID))
	}
	return views, nil
}
