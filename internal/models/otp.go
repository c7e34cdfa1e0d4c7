package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы бакетов для rate limit таблицы.
const (
	RateLimitTypeSendOTP   = "send_otp"
	RateLimitTypeSendOTPIP = "send_otp_ip"
)

// OTPCode — одноразовый код подтверждения номера телефона.
// Уникальности на (phone, code) нет: одновременно может существовать
// несколько активных кодов, при проверке берётся самый свежий.
type OTPCode struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Phone     string    `db:"phone" json:"phone"`
	Code      string    `db:"code" json:"-"`
	Verified  bool      `db:"verified" json:"verified"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired сообщает, истёк ли срок действия кода.
func (c *OTPCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// RateLimit — счётчик отправок для телефона или IP адреса.
// Записи не удаляются: вышедшие за окно просто перестают учитываться.
type RateLimit struct {
	Identifier     string    `db:"identifier" json:"identifier"`
	RequestType    string    `db:"request_type" json:"request_type"`
	Attempts       int       `db:"attempts" json:"attempts"`
	FirstAttemptAt time.Time `db:"first_attempt_at" json:"first_attempt_at"`
	LastAttemptAt  time.Time `db:"last_attempt_at" json:"last_attempt_at"`
}
