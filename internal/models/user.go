package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей.
const (
	RoleClient  = "client"
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// User описывает учётную запись, привязанную к номеру телефона.
// Телефон — естественный ключ дедупликации: второй аккаунт на тот же
// номер создать нельзя.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Phone         string     `db:"phone" json:"phone"`
	PasswordHash  *string    `db:"password_hash" json:"-"`
	FullName      *string    `db:"full_name" json:"full_name,omitempty"`
	BusinessName  *string    `db:"business_name" json:"business_name,omitempty"`
	City          *string    `db:"city" json:"city,omitempty"`
	Locale        string     `db:"locale" json:"locale"`
	PhoneVerified bool       `db:"phone_verified" json:"phone_verified"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserRole — назначение роли пользователю. На пару (user_id, role)
// существует не более одной записи.
type UserRole struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
