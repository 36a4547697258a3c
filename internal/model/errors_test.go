package model_test

import (
	"errors"
	"fmt"
	"restaurant-auth/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrapped credentials", fmt.Errorf("login: %w", model.ErrInvalidCredentials), model.CodeInvalidCredentials},
		{"unknown user hides as credentials", model.ErrUserNotFound, model.CodeInvalidCredentials},
		{"token error", &model.TokenError{Reason: model.TokenExpired}, model.CodeInvalidToken},
		{"revoked", model.ErrSessionRevoked, model.CodeSessionRevoked},
		{"reuse", fmt.Errorf("%w: s1", model.ErrTokenReuseDetected), model.CodeTokenReuseDetected},
		{"rate limit", &model.RateLimitError{Scope: "login"}, model.CodeRateLimited},
		{"validation", model.ValidationError("пусто"), model.CodeValidationError},
		{"not found", model.ErrSessionNotFound, model.CodeSessionNotFound},
		{"forbidden", model.ErrForbidden, model.CodeForbidden},
		{"store wins over everything", fmt.Errorf("%w: %w", model.ErrStoreUnavailable, model.ErrSessionNotFound), model.CodeStoreUnavailable},
		{"reuse wins when revoke failed", errors.Join(model.ErrTokenReuseDetected, model.ErrSessionRevoked), model.CodeTokenReuseDetected},
		{"anything else", errors.New("boom"), model.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.CodeOf(tt.err))
		})
	}
}

func TestTokenError(t *testing.T) {
	err := &model.TokenError{Reason: model.TokenBadSignature, Err: errors.New("signature is invalid")}
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.Contains(t, err.Error(), "BAD_SIGNATURE")
	assert.Contains(t, (&model.TokenError{Reason: model.TokenMalformed}).Error(), "MALFORMED")
}

func TestRateLimitError_RetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		resetAt time.Time
		want    int
	}{
		{now.Add(90 * time.Second), 90},
		{now.Add(1500 * time.Millisecond), 2},
		{now, 1},
		{now.Add(-time.Minute), 1},
	}

	for _, tt := range tests {
		err := &model.RateLimitError{Scope: "login", ResetAt: tt.resetAt}
		assert.Equal(t, tt.want, err.RetryAfter(now))
	}
}
