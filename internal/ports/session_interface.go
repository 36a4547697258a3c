package ports

import (
	"context"
	"restaurant-auth/internal/model"
	"time"
)

// SessionRepository : SQL слой сессий.
// Revoke и RevokeAll меняют только неотозванные сессии, RotateToken выполняет compare-and-swap.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, owner model.SessionOwner, sessionID string) (*model.Session, error)
	ListByUser(ctx context.Context, owner model.SessionOwner, includeRevoked bool) ([]model.Session, error)
	Touch(ctx context.Context, owner model.SessionOwner, sessionID string, at time.Time) error
	Revoke(ctx context.Context, owner model.SessionOwner, sessionID, reason string, at time.Time) (*model.Session, bool, error)
	RevokeAll(ctx context.Context, owner model.SessionOwner, exceptSessionID, reason string, at time.Time) ([]model.Session, error)
	RotateToken(ctx context.Context, owner model.SessionOwner, sessionID string, rotation model.TokenRotation) (bool, error)
}

type AuditRepository interface {
	Insert(ctx context.Context, event *model.AuditEvent) error
}
