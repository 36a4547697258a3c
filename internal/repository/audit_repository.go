package repository

import (
	"context"
	"encoding/json"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
)

type AuditRepository struct {
	*config.Database
}

func NewAuditRepository(database *config.Database) *AuditRepository {
	return &AuditRepository{database}
}

// Insert : журнал только дополняется, события не изменяются и не удаляются
func (r *AuditRepository) Insert(ctx context.Context, event *model.AuditEvent) error {
	metadata := []byte("{}")
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		metadata = encoded
	}

	query := `INSERT INTO auth_audit_events
		(id, action, actor_uuid, tenant_id, session_id, ip_address, severity, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(ctx, query,
		event.ID,
		event.Action,
		event.ActorUUID,
		event.TenantID,
		event.SessionID,
		event.IPAddress,
		string(event.Severity),
		metadata,
		event.OccurredAt,
	)
	if err != nil {
		return storeError("[AuditRepo] ошибка вставки события", err)
	}
	return nil
}
