package service

import (
	"context"
	"log/slog"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"time"

	"github.com/google/uuid"
)

// AuditService : запись событий в журнал. Ошибка журнала не влияет на исход операции.
type AuditService struct {
	repo    ports.AuditRepository
	timeout time.Duration
	now     func() time.Time
}

func NewAuditService(repo ports.AuditRepository, timeout time.Duration) *AuditService {
	return &AuditService{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *AuditService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AuditService) Record(ctx context.Context, event model.AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if event.Severity == "" {
		event.Severity = model.SeverityInfo
	}

	slog.Log(ctx, severityLevel(event.Severity), "audit",
		"action", event.Action,
		"actor_uuid", event.ActorUUID,
		"tenant_id", event.TenantID,
		"session_id", event.SessionID,
		"ip", event.IPAddress,
		"severity", event.Severity,
	)

	if s.repo == nil {
		return
	}

	// запрос мог быть отменен клиентом, событие все равно должно попасть в журнал
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		slog.Error("не удалось записать событие аудита", "action", event.Action, "error", err)
	}
}

func severityLevel(severity model.Severity) slog.Level {
	switch severity {
	case model.SeverityCritical:
		return slog.LevelError
	case model.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
