package service

import (
	"context"
	"fmt"
	"log/slog"
	"restaurant-auth/internal/metrics"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"time"

	"github.com/google/uuid"
)

// SessionService : реестр сессий пользователя. Каждое обращение к хранилищу ограничено storeTimeout,
// просроченный вызов возвращается как ErrStoreUnavailable.
type SessionService struct {
	repo         ports.SessionRepository
	storeTimeout time.Duration
	now          func() time.Time
}

func NewSessionService(repo ports.SessionRepository, storeTimeout time.Duration) *SessionService {
	return &SessionService{
		repo:         repo,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SessionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// CreateSession : новая неотозванная сессия с новым familyId. Текущий tokenId пуст,
// пока первая пара не будет записана через AdvanceToken.
func (s *SessionService) CreateSession(ctx context.Context, owner model.SessionOwner, draft model.SessionDraft) (*model.Session, error) {
	now := s.now().UTC()
	session := &model.Session{
		SessionID:         uuid.NewString(),
		TenantID:          owner.TenantID,
		UserUUID:          owner.UserUUID,
		FamilyID:          uuid.NewString(),
		AccessExpiresAt:   now,
		DeviceFingerprint: draft.DeviceFingerprint,
		IPAddress:         draft.IPAddress,
		UserAgentSummary:  draft.UserAgentSummary,
		RememberMe:        draft.RememberMe,
		CreatedAt:         now,
		LastActivity:      now,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("не удалось создать сессию: %w", err)
	}
	return session, nil
}

func (s *SessionService) FindSession(ctx context.Context, owner model.SessionOwner, sessionID string) (*model.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.FindByID(ctx, owner, sessionID)
}

func (s *SessionService) ListSessions(ctx context.Context, owner model.SessionOwner, includeRevoked bool) ([]model.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.ListByUser(ctx, owner, includeRevoked)
}

// TouchActivity : best-effort, ошибка только логируется
func (s *SessionService) TouchActivity(ctx context.Context, owner model.SessionOwner, sessionID string) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Touch(ctx, owner, sessionID, s.now().UTC()); err != nil {
		slog.Warn("не удалось обновить активность сессии", "session_id", sessionID, "error", err)
	}
}

// Revoke : идемпотентен. Второе значение true, только если сессия перешла в revoked этим вызовом.
func (s *SessionService) Revoke(ctx context.Context, owner model.SessionOwner, sessionID, reason string) (*model.Session, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session, revoked, err := s.repo.Revoke(ctx, owner, sessionID, reason, s.now().UTC())
	if err != nil {
		return nil, false, err
	}
	if revoked {
		metrics.SessionsRevokedTotal.WithLabelValues(reason).Inc()
	}
	return session, revoked, nil
}

// RevokeAll : отзывает все активные сессии пользователя кроме exceptSessionID (пустая строка: без исключений)
func (s *SessionService) RevokeAll(ctx context.Context, owner model.SessionOwner, exceptSessionID, reason string) ([]model.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	revoked, err := s.repo.RevokeAll(ctx, owner, exceptSessionID, reason, s.now().UTC())
	if err != nil {
		return nil, err
	}
	metrics.SessionsRevokedTotal.WithLabelValues(reason).Add(float64(len(revoked)))
	return revoked, nil
}

func (s *SessionService) AdvanceToken(ctx context.Context, owner model.SessionOwner, sessionID string, rotation model.TokenRotation) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if rotation.At.IsZero() {
		rotation.At = s.now().UTC()
	}
	return s.repo.RotateToken(ctx, owner, sessionID, rotation)
}
