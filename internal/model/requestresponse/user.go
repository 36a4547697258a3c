package requestresponse

import (
	"restaurant-auth/internal/model"
	"time"
)

// UserData : публичная часть учетной записи
type UserData struct {
	UUID      string     `json:"uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
	TenantID  string     `json:"tenantId" example:"pasta-house"`
	Email     string     `json:"email" example:"owner@pasta.example"`
	Role      model.Role `json:"role" example:"owner"`
	CreatedAt time.Time  `json:"createdAt"`
}

func NewUserData(user *model.User) UserData {
	return UserData{
		UUID:      user.UUID,
		TenantID:  user.TenantID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// ErrorDetail : детальная информация об ошибке
type ErrorDetail struct {
	Status int    `json:"status" example:"401"`
	Code   string `json:"code" example:"REFRESH_FAILED"`
	Reason string `json:"reason,omitempty" example:"SESSION_REVOKED"`
	Text   string `json:"text" example:"не удалось обновить токены"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
