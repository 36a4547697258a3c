package ports

import (
	"context"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"time"
)

// TokenVerifier : единственный вызов, через который остальные сервисы платформы
// получают подтвержденную личность запроса
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*model.Principal, error)
}

type AuthenticationService interface {
	TokenVerifier
	Login(ctx context.Context, input model.LoginInput) (*model.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client model.ClientInfo) (*model.IssuedPair, error)
	Logout(ctx context.Context, principal *model.Principal, logoutAll bool, ipAddress string) (int, error)
	Revoke(ctx context.Context, principal *model.Principal, input model.RevokeInput, ipAddress string) (int, error)
	ListSessions(ctx context.Context, principal *model.Principal, includeRevoked bool) ([]model.SessionView, error)
}

// SessionRegistry : операции над сессиями пользователя, всегда в рамках (tenantId, userId)
type SessionRegistry interface {
	CreateSession(ctx context.Context, owner model.SessionOwner, draft model.SessionDraft) (*model.Session, error)
	FindSession(ctx context.Context, owner model.SessionOwner, sessionID string) (*model.Session, error)
	ListSessions(ctx context.Context, owner model.SessionOwner, includeRevoked bool) ([]model.Session, error)
	TouchActivity(ctx context.Context, owner model.SessionOwner, sessionID string)
	Revoke(ctx context.Context, owner model.SessionOwner, sessionID, reason string) (*model.Session, bool, error)
	RevokeAll(ctx context.Context, owner model.SessionOwner, exceptSessionID, reason string) ([]model.Session, error)
	AdvanceToken(ctx context.Context, owner model.SessionOwner, sessionID string, rotation model.TokenRotation) (bool, error)
}

type RateLimiter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	CheckLimit(ctx context.Context, key string, max int, window time.Duration) model.LimitResult
	Allow(ctx context.Context, scope, identity string, policy config.LimitPolicy) (model.LimitResult, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, event model.AuditEvent)
}
