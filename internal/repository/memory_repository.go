package repository

import (
	"context"
	"fmt"
	"restaurant-auth/internal/model"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemorySessionRepository : реализация SessionRepository для драйвера memory.
// Мьютекс защищает только map, внутри блокировки нет ввода-вывода.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*model.Session)}
}

func sessionKey(tenantID, sessionID string) string {
	return tenantID + "\x00" + sessionID
}

func ctxError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *MemorySessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := ctxError(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(session.TenantID, session.SessionID)
	if _, exists := r.sessions[key]; exists {
		return fmt.Errorf("сессия %s уже существует", session.SessionID)
	}
	stored := *session
	r.sessions[key] = &stored
	return nil
}

// lookup : вызывать под r.mu
func (r *MemorySessionRepository) lookup(owner model.SessionOwner, sessionID string) (*model.Session, bool) {
	session, ok := r.sessions[sessionKey(owner.TenantID, sessionID)]
	if !ok || session.UserUUID != owner.UserUUID {
		return nil, false
	}
	return session, true
}

func (r *MemorySessionRepository) FindByID(ctx context.Context, owner model.SessionOwner, sessionID string) (*model.Session, error) {
	if err := ctxError(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.lookup(owner, sessionID)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	found := *session
	return &found, nil
}

func (r *MemorySessionRepository) ListByUser(ctx context.Context, owner model.SessionOwner, includeRevoked bool) ([]model.Session, error) {
	if err := ctxError(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	sessions := []model.Session{}
	for _, session := range r.sessions {
		if session.TenantID != owner.TenantID || session.UserUUID != owner.UserUUID {
			continue
		}
		if session.IsRevoked && !includeRevoked {
			continue
		}
		sessions = append(sessions, *session)
	}
	r.mu.Unlock()

	sortSessions(sessions)
	return sessions, nil
}

func (r *MemorySessionRepository) Touch(ctx context.Context, owner model.SessionOwner, sessionID string, at time.Time) error {
	if err := ctxError(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.lookup(owner, sessionID); ok && !session.IsRevoked {
		session.LastActivity = at
	}
	return nil
}

func (r *MemorySessionRepository) Revoke(ctx context.Context, owner model.SessionOwner, sessionID, reason string, at time.Time) (*model.Session, bool, error) {
	if err := ctxError(ctx); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.lookup(owner, sessionID)
	if !ok {
		return nil, false, model.ErrSessionNotFound
	}
	if session.IsRevoked {
		found := *session
		return &found, false, nil
	}

	markRevoked(session, reason, at)
	revoked := *session
	return &revoked, true, nil
}

func (r *MemorySessionRepository) RevokeAll(ctx context.Context, owner model.SessionOwner, exceptSessionID, reason string, at time.Time) ([]model.Session, error) {
	if err := ctxError(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	revoked := []model.Session{}
	for _, session := range r.sessions {
		if session.TenantID != owner.TenantID || session.UserUUID != owner.UserUUID {
			continue
		}
		if session.IsRevoked || session.SessionID == exceptSessionID {
			continue
		}
		markRevoked(session, reason, at)
		revoked = append(revoked, *session)
	}
	r.mu.Unlock()

	sortSessions(revoked)
	return revoked, nil
}

func (r *MemorySessionRepository) RotateToken(ctx context.Context, owner model.SessionOwner, sessionID string, rotation model.TokenRotation) (bool, error) {
	if err := ctxError(ctx); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.lookup(owner, sessionID)
	if !ok || session.IsRevoked || session.CurrentTokenID != rotation.ExpectedTokenID {
		return false, nil
	}

	session.CurrentTokenID = rotation.NewTokenID
	session.AccessTokenID = rotation.NewAccessTokenID
	session.AccessExpiresAt = rotation.AccessExpiresAt
	session.LastActivity = rotation.At
	return true, nil
}

func markRevoked(session *model.Session, reason string, at time.Time) {
	revokedAt := at
	revokedReason := reason
	session.IsRevoked = true
	session.RevokedAt = &revokedAt
	session.RevokedReason = &revokedReason
}

func sortSessions(sessions []model.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].SessionID < sessions[j].SessionID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}

// MemoryUserRepository : учетные записи драйвера memory, заполняются при старте
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users []model.User
}

func NewMemoryUserRepository(users ...model.User) *MemoryUserRepository {
	return &MemoryUserRepository{users: append([]model.User(nil), users...)}
}

func (r *MemoryUserRepository) Add(user model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, user)
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, tenantID, email string) (*model.User, error) {
	if err := ctxError(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []model.User
	for _, user := range r.users {
		if !strings.EqualFold(user.Email, email) {
			continue
		}
		if tenantID != "" && user.TenantID != tenantID {
			continue
		}
		matches = append(matches, user)
	}

	switch len(matches) {
	case 0:
		return nil, model.ErrUserNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: email зарегистрирован у нескольких арендаторов, нужен tenantId", model.ErrInvalidCredentials)
	}
}

func (r *MemoryUserRepository) FindByUUID(ctx context.Context, tenantID, uuid string) (*model.User, error) {
	if err := ctxError(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.UUID == uuid && user.TenantID == tenantID {
			found := user
			return &found, nil
		}
	}
	return nil, model.ErrUserNotFound
}

// MemoryAuditRepository : журнал событий драйвера memory
type MemoryAuditRepository struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Insert(ctx context.Context, event *model.AuditEvent) error {
	if err := ctxError(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryAuditRepository) Events() []model.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditEvent(nil), r.events...)
}
