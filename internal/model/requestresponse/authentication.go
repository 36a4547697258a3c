package requestresponse

import "restaurant-auth/internal/model"

// LoginRequest : тело запроса на аутентификацию
type LoginRequest struct {
	Email      string `json:"email" example:"owner@pasta.example"`
	Password   string `json:"password" example:"P@ssw0rd123"`
	TenantID   string `json:"tenantId,omitempty" example:"pasta-house"`
	RememberMe bool   `json:"rememberMe" example:"false"`
}

// LoginResponse : ответ на успешную аутентификацию
type LoginResponse struct {
	User         UserData `json:"user"`
	SessionID    string   `json:"sessionId" example:"6f1c7d1e-5a0b-4c1e-9d7a-0b1f7e2c3d4a"`
	AccessToken  string   `json:"accessToken" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string   `json:"refreshToken" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	ExpiresIn    int64    `json:"expiresIn" example:"900"`
}

// RefreshTokenRequest : запрос на обновление пары токенов.
// Если поле пустое, токен берется из cookie.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
}

// RefreshTokenResponse : ответ на успешный refresh
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refreshToken" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	ExpiresIn    int64  `json:"expiresIn" example:"900"`
}

// LogoutRequest : logoutAll завершает все сессии, кроме текущей
type LogoutRequest struct {
	LogoutAll bool `json:"logoutAll" example:"false"`
}

// RevokeRequest : отзыв конкретной сессии, всех своих сессий или сессий другого пользователя арендатора
type RevokeRequest struct {
	SessionID string `json:"sessionId,omitempty" example:"6f1c7d1e-5a0b-4c1e-9d7a-0b1f7e2c3d4a"`
	RevokeAll bool   `json:"revokeAll,omitempty" example:"false"`
	UserID    string `json:"userId,omitempty" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	Reason    string `json:"reason,omitempty" example:"lost phone"`
}

// RevokeResponse : сколько сессий перешло в состояние revoked
type RevokeResponse struct {
	Revoked int `json:"revoked" example:"1"`
}

// SessionsResponse : список сессий пользователя
type SessionsResponse struct {
	Sessions []model.SessionView `json:"sessions"`
}

// CurrentUserResponse : информация о текущем пользователе
type CurrentUserResponse struct {
	UserUUID     string             `json:"userUuid" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	TenantID     string             `json:"tenantId" example:"pasta-house"`
	Role         model.Role         `json:"role" example:"owner"`
	SessionID    string             `json:"sessionId" example:"6f1c7d1e-5a0b-4c1e-9d7a-0b1f7e2c3d4a"`
	Capabilities []model.Capability `json:"capabilities"`
}
