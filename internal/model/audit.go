package model

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	AuditLogin               = "auth.login"
	AuditLoginFailed         = "auth.login_failed"
	AuditRefresh             = "auth.refresh"
	AuditLogout              = "auth.logout"
	AuditLogoutAll           = "auth.logout_all"
	AuditRevoke              = "auth.revoke"
	AuditRevokeAll           = "auth.revoke_all"
	AuditTokenReuse          = "auth.token_reuse_detected"
	AuditFingerprintMismatch = "auth.fingerprint_mismatch"
)

type AuditEvent struct {
	ID         string            `db:"id" json:"id"`
	Action     string            `db:"action" json:"action"`
	ActorUUID  string            `db:"actor_uuid" json:"actorUuid"`
	TenantID   string            `db:"tenant_id" json:"tenantId"`
	SessionID  string            `db:"session_id" json:"sessionId"`
	IPAddress  string            `db:"ip_address" json:"ipAddress"`
	Severity   Severity          `db:"severity" json:"severity"`
	Metadata   map[string]string `db:"-" json:"metadata,omitempty"`
	OccurredAt time.Time         `db:"occurred_at" json:"occurredAt"`
}

// LimitResult : итог проверки лимитера. Degraded означает, что кэш был недоступен
// и запрос пропущен без подсчета.
type LimitResult struct {
	Allowed   bool
	Limit     int
	Count     int64
	Remaining int
	ResetAt   time.Time
	Degraded  bool
}
