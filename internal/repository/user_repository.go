package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"restaurant-auth/config"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/util"
)

const userColumns = `uuid, tenant_id, email, password_hash, role, created_at`

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// FindByEmail : ищет пользователя по email. Без tenantID email должен встречаться ровно у одного арендатора,
// иначе вход считается неуспешным.
func (r *UserRepository) FindByEmail(ctx context.Context, tenantID, email string) (*model.User, error) {
	if tenantID != "" {
		query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`
		var user model.User
		err := r.DB.GetContext(ctx, &user, query, tenantID, email)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		if err != nil {
			return nil, storeError("[UserRepo] не удалось найти пользователя по email", err)
		}
		return &user, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 2`
	var users []model.User
	if err := r.DB.SelectContext(ctx, &users, query, email); err != nil {
		return nil, storeError("[UserRepo] не удалось найти пользователя по email", err)
	}

	switch len(users) {
	case 0:
		return nil, model.ErrUserNotFound
	case 1:
		return &users[0], nil
	default:
		return nil, fmt.Errorf("%w: email зарегистрирован у нескольких арендаторов, нужен tenantId", model.ErrInvalidCredentials)
	}
}

// FindByUUID : ищет пользователя по UUID в пределах арендатора
func (r *UserRepository) FindByUUID(ctx context.Context, tenantID, uuid string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND uuid = $2`
	var user model.User
	err := r.DB.GetContext(ctx, &user, query, tenantID, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// storeError : любая ошибка драйвера, кроме "нет строк", означает недоступность хранилища
func storeError(message string, err error) error {
	return util.LogError(message, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err))
}
