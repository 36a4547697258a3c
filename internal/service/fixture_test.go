package service_test

import (
	"context"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/repository"
	"restaurant-auth/internal/security"
	"restaurant-auth/internal/service"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	tenantPasta = "pasta-house"
	testPass    = "P@ssw0rd123"
)

var (
	phone  = model.ClientInfo{UserAgent: "Mozilla/5.0 (Linux; Android 14) Chrome/126.0", AcceptLanguage: "ru", IPAddress: "10.0.0.1"}
	laptop = model.ClientInfo{UserAgent: "Mozilla/5.0 (Windows NT 10.0) Firefox/128.0", AcceptLanguage: "en", IPAddress: "10.0.0.2"}
)

type fixture struct {
	cfg      *config.AppConfig
	users    *repository.MemoryUserRepository
	sessions *repository.MemorySessionRepository
	audit    *repository.MemoryAuditRepository
	tokens   *security.JWTService
	auth     *service.AuthenticationService
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T, configure ...func(cfg *config.AppConfig)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.AccessSecret = "access-secret-for-tests-0123456789"
	cfg.JWT.RefreshSecret = "refresh-secret-for-tests-9876543210"
	for _, apply := range configure {
		apply(cfg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPass), bcrypt.MinCost)
	require.NoError(t, err)

	users := repository.NewMemoryUserRepository(
		model.User{UUID: "owner-1", TenantID: tenantPasta, Email: "owner@pasta.example", PasswordHash: string(hash), Role: model.RoleOwner},
		model.User{UUID: "staff-1", TenantID: tenantPasta, Email: "staff@pasta.example", PasswordHash: string(hash), Role: model.RoleStaff},
		model.User{UUID: "customer-1", TenantID: tenantPasta, Email: "guest@mail.example", PasswordHash: string(hash), Role: model.RoleCustomer},
		model.User{UUID: "owner-2", TenantID: "sushi-bar", Email: "owner@sushi.example", PasswordHash: string(hash), Role: model.RoleOwner},
	)
	sessionRepo := repository.NewMemorySessionRepository()
	auditRepo := repository.NewMemoryAuditRepository()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := repository.NewCacheRepository(&config.RedisClient{Client: client})

	tokens := security.NewJWTService(&cfg.JWT, cache)
	sessions := service.NewSessionService(sessionRepo, cfg.Database.StoreTimeout.Std())
	audit := service.NewAuditService(auditRepo, cfg.Database.StoreTimeout.Std())

	return &fixture{
		cfg:      cfg,
		users:    users,
		sessions: sessionRepo,
		audit:    auditRepo,
		tokens:   tokens,
		auth:     service.NewAuthenticationService(users, sessions, tokens, audit, cfg),
		redis:    mr,
	}
}

func (f *fixture) login(t *testing.T, email string, client model.ClientInfo) *model.LoginResult {
	t.Helper()
	result, err := f.auth.Login(context.Background(), model.LoginInput{
		Email:    email,
		Password: testPass,
		TenantID: tenantPasta,
		Client:   client,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) principal(t *testing.T, accessToken string) *model.Principal {
	t.Helper()
	principal, err := f.auth.Verify(context.Background(), accessToken)
	require.NoError(t, err)
	return principal
}

func (f *fixture) session(t *testing.T, userUUID, sessionID string) *model.Session {
	t.Helper()
	session, err := f.sessions.FindByID(context.Background(), model.SessionOwner{TenantID: tenantPasta, UserUUID: userUUID}, sessionID)
	require.NoError(t, err)
	return session
}

func (f *fixture) auditActions() []string {
	var actions []string
	for _, event := range f.audit.Events() {
		actions = append(actions, event.Action)
	}
	return actions
}

func (f *fixture) auditEvent(action string) (model.AuditEvent, bool) {
	for _, event := range f.audit.Events() {
		if event.Action == action {
			return event, true
		}
	}
	return model.AuditEvent{}, false
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
