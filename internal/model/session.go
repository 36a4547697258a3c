package model

import "time"

const (
	RevokeReasonLogout     = "logout"
	RevokeReasonLogoutAll  = "logout_all"
	RevokeReasonTokenReuse = "token_reuse"
	RevokeReasonUser       = "user_revoked"
	RevokeReasonAdmin      = "admin_revoked"
)

// SessionOwner : все операции с сессиями ограничены арендатором и пользователем
type SessionOwner struct {
	TenantID string
	UserUUID string
}

type Session struct {
	SessionID         string     `db:"session_id"`
	TenantID          string     `db:"tenant_id"`
	UserUUID          string     `db:"user_uuid"`
	FamilyID          string     `db:"family_id"`
	CurrentTokenID    string     `db:"current_token_id"`
	AccessTokenID     string     `db:"access_token_id"`
	AccessExpiresAt   time.Time  `db:"access_expires_at"`
	DeviceFingerprint string     `db:"device_fingerprint"`
	IPAddress         string     `db:"ip_address"`
	UserAgentSummary  string     `db:"user_agent_summary"`
	RememberMe        bool       `db:"remember_me"`
	CreatedAt         time.Time  `db:"created_at"`
	LastActivity      time.Time  `db:"last_activity"`
	IsRevoked         bool       `db:"is_revoked"`
	RevokedAt         *time.Time `db:"revoked_at"`
	RevokedReason     *string    `db:"revoked_reason"`
}

func (s *Session) Owner() SessionOwner {
	return SessionOwner{TenantID: s.TenantID, UserUUID: s.UserUUID}
}

// SessionDraft : данные устройства, из которых создается новая сессия
type SessionDraft struct {
	DeviceFingerprint string
	IPAddress         string
	UserAgentSummary  string
	RememberMe        bool
}

// TokenRotation : аргументы атомарной замены текущего tokenId сессии
type TokenRotation struct {
	ExpectedTokenID  string
	NewTokenID       string
	NewAccessTokenID string
	AccessExpiresAt  time.Time
	At               time.Time
}

// SessionView : сессия в том виде, в котором ее видит владелец
type SessionView struct {
	SessionID         string     `json:"sessionId"`
	DeviceFingerprint string     `json:"deviceFingerprint"`
	IPAddress         string     `json:"ipAddress"`
	UserAgentSummary  string     `json:"userAgent"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastActivity      time.Time  `json:"lastActivity"`
	IsCurrent         bool       `json:"isCurrent"`
	IsRevoked         bool       `json:"isRevoked"`
	RevokedAt         *time.Time `json:"revokedAt,omitempty"`
	RevokedReason     *string    `json:"revokedReason,omitempty"`
}

func (s *Session) View(currentSessionID string) SessionView {
	return SessionView{
		SessionID:         s.SessionID,
		DeviceFingerprint: s.DeviceFingerprint,
		IPAddress:         s.IPAddress,
		UserAgentSummary:  s.UserAgentSummary,
		CreatedAt:         s.CreatedAt,
		LastActivity:      s.LastActivity,
		IsCurrent:         s.SessionID == currentSessionID,
		IsRevoked:         s.IsRevoked,
		RevokedAt:         s.RevokedAt,
		RevokedReason:     s.RevokedReason,
	}
}
