package security

import (
	"context"
	"errors"
	"fmt"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AccessClaims struct {
	TenantID  string `json:"tid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	TenantID        string `json:"tid"`
	SessionID       string `json:"sid"`
	FamilyID        string `json:"fam"`
	FingerprintHash string `json:"fph"`
	RememberMe      bool   `json:"rem,omitempty"`
	TokenType       string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService : кодек токенов. Access и refresh подписываются разными секретами.
type JWTService struct {
	cfg      *config.JWTConfig
	denyList ports.DenyList
	now      func() time.Time
}

func NewJWTService(cfg *config.JWTConfig, denyList ports.DenyList) *JWTService {
	return &JWTService{
		cfg:      cfg,
		denyList: denyList,
		now:      time.Now,
	}
}

// SetClock : подменяет источник времени, используется в тестах
func (s *JWTService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *JWTService) IssuePair(subject model.TokenSubject) (*model.IssuedPair, error) {
	if subject.UserUUID == "" || subject.TenantID == "" || subject.SessionID == "" || subject.FamilyID == "" {
		return nil, fmt.Errorf("%w: неполные данные для выпуска токенов", model.ErrValidation)
	}

	now := s.now().UTC()
	accessID := uuid.NewString()
	refreshID := uuid.NewString()
	accessExpiresAt := now.Add(s.cfg.AccessTokenTTL.Std())

	refreshTTL := s.cfg.RefreshTokenTTL.Std()
	if subject.RememberMe {
		refreshTTL = s.cfg.RememberMeRefreshTTL.Std()
	}
	refreshExpiresAt := now.Add(refreshTTL)

	accessClaims := AccessClaims{
		TenantID:  subject.TenantID,
		Role:      string(subject.Role),
		SessionID: subject.SessionID,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        accessID,
			Subject:   subject.UserUUID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS512, accessClaims).SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи access токена: %w", err)
	}

	refreshClaims := RefreshClaims{
		TenantID:        subject.TenantID,
		SessionID:       subject.SessionID,
		FamilyID:        subject.FamilyID,
		FingerprintHash: subject.Fingerprint,
		RememberMe:      subject.RememberMe,
		TokenType:       tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        refreshID,
			Subject:   subject.UserUUID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiresAt),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS512, refreshClaims).SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи refresh токена: %w", err)
	}

	return &model.IssuedPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessTokenID:    accessID,
		RefreshTokenID:   refreshID,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (s *JWTService) DecodeAccess(token string) (*model.AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims, s.cfg.AccessSecret); err != nil {
		return nil, err
	}

	if claims.TokenType != tokenTypeAccess || claims.Subject == "" || claims.TenantID == "" ||
		claims.SessionID == "" || claims.ID == "" {
		return nil, &model.TokenError{Reason: model.TokenMalformed, Err: errors.New("нет обязательных полей access токена")}
	}

	return &model.AccessClaims{
		UserUUID:  claims.Subject,
		TenantID:  claims.TenantID,
		Role:      model.Role(claims.Role),
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTService) DecodeRefresh(token string) (*model.RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims, s.cfg.RefreshSecret); err != nil {
		return nil, err
	}

	if claims.TokenType != tokenTypeRefresh || claims.Subject == "" || claims.TenantID == "" ||
		claims.SessionID == "" || claims.FamilyID == "" || claims.ID == "" {
		return nil, &model.TokenError{Reason: model.TokenMalformed, Err: errors.New("нет обязательных полей refresh токена")}
	}

	return &model.RefreshClaims{
		UserUUID:        claims.Subject,
		TenantID:        claims.TenantID,
		SessionID:       claims.SessionID,
		FamilyID:        claims.FamilyID,
		TokenID:         claims.ID,
		FingerprintHash: claims.FingerprintHash,
		RememberMe:      claims.RememberMe,
		ExpiresAt:       claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTService) parse(token string, claims jwt.Claims, secret string) error {
	if token == "" {
		return &model.TokenError{Reason: model.TokenMalformed, Err: errors.New("пустой токен")}
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return &model.TokenError{Reason: classifyJWTError(err), Err: err}
	}
	return nil
}

func classifyJWTError(err error) model.TokenFailure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.TokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return model.TokenBadSignature
	default:
		return model.TokenMalformed
	}
}

// RevokeJTI : кладет id access токена в deny-list до его естественного истечения
func (s *JWTService) RevokeJTI(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.denyList.RevokeToken(ctx, jti, ttl)
}

func (s *JWTService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.denyList.IsTokenRevoked(ctx, jti)
}
