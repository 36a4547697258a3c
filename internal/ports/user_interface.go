package ports

import (
	"context"
	"restaurant-auth/internal/model"
)

// UserRepository : хранилище учетных записей. tenantID в FindByEmail может быть пустым,
// тогда email должен однозначно указывать на одного пользователя.
type UserRepository interface {
	FindByEmail(ctx context.Context, tenantID, email string) (*model.User, error)
	FindByUUID(ctx context.Context, tenantID, uuid string) (*model.User, error)
}
