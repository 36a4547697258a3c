package model

import (
	"errors"
	"fmt"
	"time"
)

const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeSessionRevoked     = "SESSION_REVOKED"
	CodeTokenReuseDetected = "TOKEN_REUSE_DETECTED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)

var (
	ErrInvalidCredentials = errors.New("неверный логин или пароль")
	ErrInvalidToken       = errors.New("невалидный токен")
	ErrSessionRevoked     = errors.New("сессия отозвана")
	ErrTokenReuseDetected = errors.New("обнаружено повторное использование refresh токена")
	ErrRateLimited        = errors.New("превышен лимит запросов")
	ErrStoreUnavailable   = errors.New("хранилище недоступно")
	ErrValidation         = errors.New("ошибка валидации")
	ErrSessionNotFound    = errors.New("сессия не найдена")
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrForbidden          = errors.New("доступ запрещён")
)

// CodeOf : код таксономии для любой (в том числе обернутой) ошибки
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	case errors.Is(err, ErrTokenReuseDetected):
		return CodeTokenReuseDetected
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return CodeInvalidCredentials
	case errors.Is(err, ErrInvalidToken):
		return CodeInvalidToken
	case errors.Is(err, ErrSessionRevoked):
		return CodeSessionRevoked
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrValidation):
		return CodeValidationError
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternal
	}
}

type TokenFailure string

const (
	TokenMalformed    TokenFailure = "MALFORMED"
	TokenExpired      TokenFailure = "EXPIRED"
	TokenBadSignature TokenFailure = "BAD_SIGNATURE"
)

// TokenError : причина, по которой токен не декодировался
type TokenError struct {
	Reason TokenFailure
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrInvalidToken, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrInvalidToken, e.Reason, e.Err)
}

func (e *TokenError) Unwrap() error {
	return ErrInvalidToken
}

func ValidationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

type RateLimitError struct {
	Scope   string
	ResetAt time.Time
	Limit   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRateLimited, e.Scope)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter : сколько целых секунд осталось до сброса окна, минимум 1
func (e *RateLimitError) RetryAfter(now time.Time) int {
	seconds := int(e.ResetAt.Sub(now).Seconds() + 0.999)
	if seconds < 1 {
		return 1
	}
	return seconds
}
