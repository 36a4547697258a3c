package ports

import (
	"context"
	"restaurant-auth/internal/model"
	"time"
)

// TokenCodec : выпуск и проверка access/refresh токенов
type TokenCodec interface {
	IssuePair(subject model.TokenSubject) (*model.IssuedPair, error)
	DecodeAccess(token string) (*model.AccessClaims, error)
	DecodeRefresh(token string) (*model.RefreshClaims, error)
	RevokeJTI(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
