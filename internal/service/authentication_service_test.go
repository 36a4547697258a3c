package service_test

import (
	"context"
	"errors"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationService_Login(t *testing.T) {
	f := newFixture(t)

	result := f.login(t, "Owner@Pasta.example", phone)

	assert.Equal(t, "owner-1", result.User.UUID)
	assert.NotEmpty(t, result.Pair.AccessToken)
	assert.NotEmpty(t, result.Pair.RefreshToken)

	stored := f.session(t, "owner-1", result.Session.SessionID)
	assert.Equal(t, result.Pair.RefreshTokenID, stored.CurrentTokenID)
	assert.Equal(t, result.Pair.AccessTokenID, stored.AccessTokenID)
	assert.Equal(t, "Chrome on Android", stored.UserAgentSummary)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	assert.False(t, stored.IsRevoked)

	principal := f.principal(t, result.Pair.AccessToken)
	assert.Equal(t, model.RoleOwner, principal.Role)
	assert.Equal(t, result.Session.SessionID, principal.SessionID)

	assert.Contains(t, f.auditActions(), model.AuditLogin)
}

func TestAuthenticationService_LoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		input    model.LoginInput
		wantCode string
	}{
		{"empty email", model.LoginInput{Password: testPass, TenantID: tenantPasta}, model.CodeValidationError},
		{"empty password", model.LoginInput{Email: "owner@pasta.example", TenantID: tenantPasta}, model.CodeValidationError},
		{"unknown email", model.LoginInput{Email: "ghost@pasta.example", Password: testPass, TenantID: tenantPasta}, model.CodeInvalidCredentials},
		{"wrong password", model.LoginInput{Email: "owner@pasta.example", Password: "nope", TenantID: tenantPasta}, model.CodeInvalidCredentials},
		{"wrong tenant", model.LoginInput{Email: "owner@pasta.example", Password: testPass, TenantID: "sushi-bar"}, model.CodeInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.auth.Login(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantCode, model.CodeOf(err))

			sessions, listErr := f.sessions.ListByUser(context.Background(), model.SessionOwner{TenantID: tenantPasta, UserUUID: "owner-1"}, true)
			require.NoError(t, listErr)
			assert.Empty(t, sessions)
		})
	}
}

func TestAuthenticationService_LoginFailureIsAudited(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Login(context.Background(), model.LoginInput{Email: "owner@pasta.example", Password: "nope", TenantID: tenantPasta, Client: phone})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	event, ok := f.auditEvent(model.AuditLoginFailed)
	require.True(t, ok)
	assert.Equal(t, model.SeverityWarning, event.Severity)
	assert.Equal(t, "owner-1", event.ActorUUID)
	assert.Equal(t, "bad_password", event.Metadata["reason"])
}

func TestAuthenticationService_LoginWithoutTenant(t *testing.T) {
	f := newFixture(t)

	result, err := f.auth.Login(context.Background(), model.LoginInput{Email: "owner@sushi.example", Password: testPass})
	require.NoError(t, err)
	assert.Equal(t, "sushi-bar", result.User.TenantID)
}

func TestAuthenticationService_RefreshRotates(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)

	pair, err := f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
	require.NoError(t, err)
	assert.NotEqual(t, login.Pair.RefreshTokenID, pair.RefreshTokenID)

	stored := f.session(t, "owner-1", login.Session.SessionID)
	assert.Equal(t, pair.RefreshTokenID, stored.CurrentTokenID)
	assert.Equal(t, login.Session.FamilyID, stored.FamilyID)

	// предыдущий access токен сессии больше не принимается
	_, err = f.auth.Verify(context.Background(), login.Pair.AccessToken)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)

	principal := f.principal(t, pair.AccessToken)
	assert.Equal(t, login.Session.SessionID, principal.SessionID)

	next, err := f.auth.Refresh(context.Background(), pair.RefreshToken, phone)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshTokenID, next.RefreshTokenID)
}

func TestAuthenticationService_RefreshReuseRevokesSession(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)
	r1 := login.Pair.RefreshToken

	second, err := f.auth.Refresh(context.Background(), r1, phone)
	require.NoError(t, err)

	_, err = f.auth.Refresh(context.Background(), r1, phone)
	require.ErrorIs(t, err, model.ErrTokenReuseDetected)
	assert.Equal(t, model.CodeTokenReuseDetected, model.CodeOf(err))

	stored := f.session(t, "owner-1", login.Session.SessionID)
	assert.True(t, stored.IsRevoked)
	require.NotNil(t, stored.RevokedReason)
	assert.Equal(t, model.RevokeReasonTokenReuse, *stored.RevokedReason)

	// легитимный владелец R2 тоже теряет сессию
	_, err = f.auth.Refresh(context.Background(), second.RefreshToken, phone)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)

	_, err = f.auth.Verify(context.Background(), second.AccessToken)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)

	event, ok := f.auditEvent(model.AuditTokenReuse)
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, event.Severity)
	assert.Equal(t, login.Session.FamilyID, event.Metadata["family_id"])
}

func TestAuthenticationService_ConcurrentRefreshSingleWinner(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, attempts-1)
	for _, err := range failures {
		assert.True(t,
			errors.Is(err, model.ErrTokenReuseDetected) || errors.Is(err, model.ErrSessionRevoked),
			"неожиданная ошибка: %v", err)
	}
}

func TestAuthenticationService_TwoDevices(t *testing.T) {
	f := newFixture(t)
	onPhone := f.login(t, "owner@pasta.example", phone)
	onLaptop := f.login(t, "owner@pasta.example", laptop)
	assert.NotEqual(t, onPhone.Session.FamilyID, onLaptop.Session.FamilyID)

	phonePair, err := f.auth.Refresh(context.Background(), onPhone.Pair.RefreshToken, phone)
	require.NoError(t, err)

	// повтор на телефоне не затрагивает ноутбук
	_, err = f.auth.Refresh(context.Background(), onPhone.Pair.RefreshToken, phone)
	require.ErrorIs(t, err, model.ErrTokenReuseDetected)

	_, err = f.auth.Refresh(context.Background(), phonePair.RefreshToken, phone)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)

	laptopPair, err := f.auth.Refresh(context.Background(), onLaptop.Pair.RefreshToken, laptop)
	require.NoError(t, err)
	f.principal(t, laptopPair.AccessToken)
}

func TestAuthenticationService_RefreshInvalidToken(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)

	_, err := f.auth.Refresh(context.Background(), "garbage", phone)
	assert.Equal(t, model.CodeInvalidToken, model.CodeOf(err))

	_, err = f.auth.Refresh(context.Background(), login.Pair.AccessToken, phone)
	assert.Equal(t, model.CodeInvalidToken, model.CodeOf(err))

	f.tokens.SetClock(fixedClock(time.Now().Add(25 * time.Hour)))
	_, err = f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
	var tokenErr *model.TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, model.TokenExpired, tokenErr.Reason)

	assert.False(t, f.session(t, "owner-1", login.Session.SessionID).IsRevoked, "невалидный токен не отзывает сессию")
}

func TestAuthenticationService_FingerprintPolicy(t *testing.T) {
	t.Run("warn", func(t *testing.T) {
		f := newFixture(t)
		login := f.login(t, "owner@pasta.example", phone)

		_, err := f.auth.Refresh(context.Background(), login.Pair.RefreshToken, laptop)
		require.NoError(t, err)

		event, ok := f.auditEvent(model.AuditFingerprintMismatch)
		require.True(t, ok)
		assert.Equal(t, config.FingerprintPolicyWarn, event.Metadata["policy"])
	})

	t.Run("strict", func(t *testing.T) {
		f := newFixture(t, func(cfg *config.AppConfig) {
			cfg.Session.FingerprintPolicy = config.FingerprintPolicyStrict
		})
		login := f.login(t, "owner@pasta.example", phone)

		_, err := f.auth.Refresh(context.Background(), login.Pair.RefreshToken, laptop)
		assert.ErrorIs(t, err, model.ErrInvalidToken)

		stored := f.session(t, "owner-1", login.Session.SessionID)
		assert.False(t, stored.IsRevoked)
		assert.Equal(t, login.Pair.RefreshTokenID, stored.CurrentTokenID)

		_, err = f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
		assert.NoError(t, err)
	})

	t.Run("off", func(t *testing.T) {
		f := newFixture(t, func(cfg *config.AppConfig) {
			cfg.Session.FingerprintPolicy = config.FingerprintPolicyOff
		})
		login := f.login(t, "owner@pasta.example", phone)

		_, err := f.auth.Refresh(context.Background(), login.Pair.RefreshToken, laptop)
		require.NoError(t, err)
		_, ok := f.auditEvent(model.AuditFingerprintMismatch)
		assert.False(t, ok)
	})
}

func TestAuthenticationService_Logout(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)
	principal := f.principal(t, login.Pair.AccessToken)

	revoked, err := f.auth.Logout(context.Background(), principal, false, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)

	_, err = f.auth.Verify(context.Background(), login.Pair.AccessToken)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)

	_, err = f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)

	revoked, err = f.auth.Logout(context.Background(), principal, false, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 0, revoked, "повторный logout ничего не меняет")

	stored := f.session(t, "owner-1", login.Session.SessionID)
	assert.Equal(t, model.RevokeReasonLogout, *stored.RevokedReason)
}

func TestAuthenticationService_LogoutAll(t *testing.T) {
	tests := []struct {
		name   string
		others int
	}{
		{"only current", 0},
		{"one other", 1},
		{"ten others", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			current := f.login(t, "owner@pasta.example", phone)
			var others []*model.LoginResult
			for i := 0; i < tt.others; i++ {
				others = append(others, f.login(t, "owner@pasta.example", laptop))
			}

			revoked, err := f.auth.Logout(context.Background(), f.principal(t, current.Pair.AccessToken), true, "10.0.0.1")
			require.NoError(t, err)
			assert.Equal(t, tt.others, revoked)

			f.principal(t, current.Pair.AccessToken)
			for _, other := range others {
				_, err := f.auth.Verify(context.Background(), other.Pair.AccessToken)
				assert.ErrorIs(t, err, model.ErrSessionRevoked)
			}

			_, err = f.auth.Refresh(context.Background(), current.Pair.RefreshToken, phone)
			assert.NoError(t, err)
		})
	}
}

func TestAuthenticationService_Revoke(t *testing.T) {
	t.Run("own session by id", func(t *testing.T) {
		f := newFixture(t)
		onPhone := f.login(t, "staff@pasta.example", phone)
		onLaptop := f.login(t, "staff@pasta.example", laptop)

		revoked, err := f.auth.Revoke(context.Background(), f.principal(t, onPhone.Pair.AccessToken),
			model.RevokeInput{SessionID: onLaptop.Session.SessionID, Reason: "lost laptop"}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 1, revoked)

		stored := f.session(t, "staff-1", onLaptop.Session.SessionID)
		assert.True(t, stored.IsRevoked)
		assert.Equal(t, "lost laptop", *stored.RevokedReason)
		f.principal(t, onPhone.Pair.AccessToken)
	})

	t.Run("revoke all includes current", func(t *testing.T) {
		f := newFixture(t)
		onPhone := f.login(t, "staff@pasta.example", phone)
		f.login(t, "staff@pasta.example", laptop)

		revoked, err := f.auth.Revoke(context.Background(), f.principal(t, onPhone.Pair.AccessToken),
			model.RevokeInput{RevokeAll: true}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 2, revoked)

		_, err = f.auth.Verify(context.Background(), onPhone.Pair.AccessToken)
		assert.ErrorIs(t, err, model.ErrSessionRevoked)
	})

	t.Run("foreign session id is not found", func(t *testing.T) {
		f := newFixture(t)
		staff := f.login(t, "staff@pasta.example", phone)
		customer := f.login(t, "guest@mail.example", phone)

		_, err := f.auth.Revoke(context.Background(), f.principal(t, customer.Pair.AccessToken),
			model.RevokeInput{SessionID: staff.Session.SessionID}, "10.0.0.1")
		assert.ErrorIs(t, err, model.ErrSessionNotFound)
		assert.False(t, f.session(t, "staff-1", staff.Session.SessionID).IsRevoked)
	})

	t.Run("customer cannot revoke other users", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "staff@pasta.example", phone)
		customer := f.login(t, "guest@mail.example", phone)

		_, err := f.auth.Revoke(context.Background(), f.principal(t, customer.Pair.AccessToken),
			model.RevokeInput{UserUUID: "staff-1"}, "10.0.0.1")
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("owner revokes staff sessions", func(t *testing.T) {
		f := newFixture(t)
		staffPhone := f.login(t, "staff@pasta.example", phone)
		f.login(t, "staff@pasta.example", laptop)
		owner := f.login(t, "owner@pasta.example", laptop)

		revoked, err := f.auth.Revoke(context.Background(), f.principal(t, owner.Pair.AccessToken),
			model.RevokeInput{UserUUID: "staff-1"}, "10.0.0.9")
		require.NoError(t, err)
		assert.Equal(t, 2, revoked)

		_, err = f.auth.Refresh(context.Background(), staffPhone.Pair.RefreshToken, phone)
		assert.ErrorIs(t, err, model.ErrSessionRevoked)
		f.principal(t, owner.Pair.AccessToken)

		event, ok := f.auditEvent(model.AuditRevokeAll)
		require.True(t, ok)
		assert.Equal(t, model.SeverityWarning, event.Severity)
		assert.Equal(t, model.RevokeReasonAdmin, event.Metadata["reason"])
		assert.Equal(t, "staff-1", event.Metadata["target_user_uuid"])
	})

	t.Run("owner cannot reach another tenant", func(t *testing.T) {
		f := newFixture(t)
		owner := f.login(t, "owner@pasta.example", laptop)

		_, err := f.auth.Revoke(context.Background(), f.principal(t, owner.Pair.AccessToken),
			model.RevokeInput{UserUUID: "owner-2"}, "10.0.0.9")
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("empty request", func(t *testing.T) {
		f := newFixture(t)
		staff := f.login(t, "staff@pasta.example", phone)

		_, err := f.auth.Revoke(context.Background(), f.principal(t, staff.Pair.AccessToken), model.RevokeInput{}, "10.0.0.1")
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestAuthenticationService_RevocationIsMonotonic(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)
	principal := f.principal(t, login.Pair.AccessToken)

	_, err := f.auth.Logout(context.Background(), principal, false, "10.0.0.1")
	require.NoError(t, err)
	first := f.session(t, "owner-1", login.Session.SessionID)

	_, err = f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
	require.ErrorIs(t, err, model.ErrSessionRevoked)

	_, err = f.auth.Revoke(context.Background(), principal, model.RevokeInput{RevokeAll: true}, "10.0.0.1")
	require.NoError(t, err)

	after := f.session(t, "owner-1", login.Session.SessionID)
	assert.True(t, after.IsRevoked)
	assert.Equal(t, *first.RevokedAt, *after.RevokedAt)
	assert.Equal(t, *first.RevokedReason, *after.RevokedReason)
}

func TestAuthenticationService_ListSessions(t *testing.T) {
	f := newFixture(t)
	onPhone := f.login(t, "owner@pasta.example", phone)
	onLaptop := f.login(t, "owner@pasta.example", laptop)
	principal := f.principal(t, onPhone.Pair.AccessToken)

	_, err := f.auth.Revoke(context.Background(), principal, model.RevokeInput{SessionID: onLaptop.Session.SessionID}, "10.0.0.1")
	require.NoError(t, err)

	active, err := f.auth.ListSessions(context.Background(), principal, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].IsCurrent)
	assert.Equal(t, onPhone.Session.SessionID, active[0].SessionID)

	all, err := f.auth.ListSessions(context.Background(), principal, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, view := range all {
		if view.SessionID == onLaptop.Session.SessionID {
			assert.True(t, view.IsRevoked)
			assert.False(t, view.IsCurrent)
		}
	}
}

func TestAuthenticationService_VerifyFailsOpenWithoutDenyList(t *testing.T) {
	f := newFixture(t)
	login := f.login(t, "owner@pasta.example", phone)

	f.redis.Close()

	principal, err := f.auth.Verify(context.Background(), login.Pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", principal.UserUUID)

	// ротация проходит, запись в deny-list просто пропускается
	_, err = f.auth.Refresh(context.Background(), login.Pair.RefreshToken, phone)
	assert.NoError(t, err)
}
