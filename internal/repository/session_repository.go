package repository

import (
	"context"
	"database/sql"
	"errors"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"time"
)

const sessionColumns = `session_id, tenant_id, user_uuid, family_id, current_token_id, access_token_id,
	access_expires_at, device_fingerprint, ip_address, user_agent_summary, remember_me,
	created_at, last_activity, is_revoked, revoked_at, revoked_reason`

type SessionRepository struct {
	*config.Database
}

func NewSessionRepository(database *config.Database) *SessionRepository {
	return &SessionRepository{database}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `INSERT INTO auth_sessions (` + sessionColumns + `)
		VALUES (:session_id, :tenant_id, :user_uuid, :family_id, :current_token_id, :access_token_id,
			:access_expires_at, :device_fingerprint, :ip_address, :user_agent_summary, :remember_me,
			:created_at, :last_activity, :is_revoked, :revoked_at, :revoked_reason)`

	if _, err := r.DB.NamedExecContext(ctx, query, session); err != nil {
		return storeError("[SessionRepo] ошибка вставки сессии", err)
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, owner model.SessionOwner, sessionID string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM auth_sessions
		WHERE tenant_id = $1 AND user_uuid = $2 AND session_id = $3`

	var session model.Session
	err := r.DB.GetContext(ctx, &session, query, owner.TenantID, owner.UserUUID, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, storeError("[SessionRepo] ошибка поиска сессии", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, owner model.SessionOwner, includeRevoked bool) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM auth_sessions
		WHERE tenant_id = $1 AND user_uuid = $2 AND ($3 OR is_revoked = FALSE)
		ORDER BY created_at, session_id`

	sessions := []model.Session{}
	if err := r.DB.SelectContext(ctx, &sessions, query, owner.TenantID, owner.UserUUID, includeRevoked); err != nil {
		return nil, storeError("[SessionRepo] ошибка получения списка сессий", err)
	}
	return sessions, nil
}

func (r *SessionRepository) Touch(ctx context.Context, owner model.SessionOwner, sessionID string, at time.Time) error {
	query := `UPDATE auth_sessions SET last_activity = $4
		WHERE tenant_id = $1 AND user_uuid = $2 AND session_id = $3 AND is_revoked = FALSE`

	if _, err := r.DB.ExecContext(ctx, query, owner.TenantID, owner.UserUUID, sessionID, at); err != nil {
		return storeError("[SessionRepo] ошибка обновления активности", err)
	}
	return nil
}

// Revoke : переводит сессию в revoked. Для уже отозванной сессии возвращает ее же и false.
func (r *SessionRepository) Revoke(ctx context.Context, owner model.SessionOwner, sessionID, reason string, at time.Time) (*model.Session, bool, error) {
	query := `UPDATE auth_sessions SET is_revoked = TRUE, revoked_at = $4, revoked_reason = $5
		WHERE tenant_id = $1 AND user_uuid = $2 AND session_id = $3 AND is_revoked = FALSE
		RETURNING ` + sessionColumns

	var session model.Session
	err := r.DB.GetContext(ctx, &session, query, owner.TenantID, owner.UserUUID, sessionID, at, reason)
	if err == nil {
		return &session, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, storeError("[SessionRepo] ошибка отзыва сессии", err)
	}

	existing, err := r.FindByID(ctx, owner, sessionID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *SessionRepository) RevokeAll(ctx context.Context, owner model.SessionOwner, exceptSessionID, reason string, at time.Time) ([]model.Session, error) {
	query := `UPDATE auth_sessions SET is_revoked = TRUE, revoked_at = $4, revoked_reason = $5
		WHERE tenant_id = $1 AND user_uuid = $2 AND session_id <> $3 AND is_revoked = FALSE
		RETURNING ` + sessionColumns

	revoked := []model.Session{}
	err := r.DB.SelectContext(ctx, &revoked, query, owner.TenantID, owner.UserUUID, exceptSessionID, at, reason)
	if err != nil {
		return nil, storeError("[SessionRepo] ошибка отзыва сессий пользователя", err)
	}
	return revoked, nil
}

// RotateToken : compare-and-swap текущего tokenId. false означает, что токен уже сменился или сессия отозвана.
func (r *SessionRepository) RotateToken(ctx context.Context, owner model.SessionOwner, sessionID string, rotation model.TokenRotation) (bool, error) {
	query := `UPDATE auth_sessions
		SET current_token_id = $5, access_token_id = $6, access_expires_at = $7, last_activity = $8
		WHERE tenant_id = $1 AND user_uuid = $2 AND session_id = $3
			AND current_token_id = $4 AND is_revoked = FALSE`

	result, err := r.DB.ExecContext(ctx, query,
		owner.TenantID,
		owner.UserUUID,
		sessionID,
		rotation.ExpectedTokenID,
		rotation.NewTokenID,
		rotation.NewAccessTokenID,
		rotation.AccessExpiresAt,
		rotation.At,
	)
	if err != nil {
		return false, storeError("[SessionRepo] ошибка ротации токена", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storeError("[SessionRepo] не удалось проверить результат ротации", err)
	}
	return rowsAffected == 1, nil
}
