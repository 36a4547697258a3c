package model

import "time"

type User struct {
	UUID         string    `db:"uuid" json:"uuid"`
	TenantID     string    `db:"tenant_id" json:"tenantId"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
