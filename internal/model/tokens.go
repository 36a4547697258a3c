package model

import "time"

// TokenSubject : все, что кодек вшивает в пару токенов
type TokenSubject struct {
	UserUUID    string
	TenantID    string
	Role        Role
	SessionID   string
	FamilyID    string
	Fingerprint string
	RememberMe  bool
}

// IssuedPair : результат выпуска пары, tokenId нужны для записи в сессию
type IssuedPair struct {
	AccessToken      string
	RefreshToken     string
	AccessTokenID    string
	RefreshTokenID   string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// ExpiresIn : время жизни access токена в секундах относительно now
func (p *IssuedPair) ExpiresIn(now time.Time) int64 {
	seconds := int64(p.AccessExpiresAt.Sub(now).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

// AccessClaims : содержимое access токена после проверки
type AccessClaims struct {
	UserUUID  string
	TenantID  string
	Role      Role
	SessionID string
	TokenID   string
	ExpiresAt time.Time
}

// RefreshClaims : содержимое refresh токена после проверки
type RefreshClaims struct {
	UserUUID        string
	TenantID        string
	SessionID       string
	FamilyID        string
	TokenID         string
	FingerprintHash string
	RememberMe      bool
	ExpiresAt       time.Time
}

// Principal : подтвержденная личность запроса
type Principal struct {
	UserUUID      string
	TenantID      string
	Role          Role
	SessionID     string
	AccessTokenID string
	ExpiresAt     time.Time
}

func (p *Principal) Owner() SessionOwner {
	return SessionOwner{TenantID: p.TenantID, UserUUID: p.UserUUID}
}

// ClientInfo : метаданные подключения, из которых строится отпечаток устройства
type ClientInfo struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	IPAddress      string
}

type LoginInput struct {
	Email      string
	Password   string
	TenantID   string
	RememberMe bool
	Client     ClientInfo
}

type LoginResult struct {
	User    *User
	Session *Session
	Pair    *IssuedPair
}

type RevokeInput struct {
	SessionID string
	RevokeAll bool
	UserUUID  string
	Reason    string
}
