package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявки на партнёрство.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// PartnerApplication — заявка бизнеса на подключение к платформе.
// Статус меняется ровно один раз: pending -> approved или pending -> rejected.
type PartnerApplication struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Phone        string     `db:"phone" json:"phone"`
	FullName     string     `db:"full_name" json:"full_name"`
	BusinessName *string    `db:"business_name" json:"business_name,omitempty"`
	Description  *string    `db:"description" json:"description,omitempty"`
	City         *string    `db:"city" json:"city,omitempty"`
	Status       string     `db:"status" json:"status"`
	AdminNotes   *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	// Пароль, выбранный администратором при одобрении. Хранится открытым
	// текстом намеренно: администратор уже его знает, а при утере доступа
	// партнёром его нужно где-то посмотреть.
	GeneratedPassword *string    `db:"generated_password" json:"-"`
	ApprovedBy        *uuid.UUID `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// PartnerProfile — профиль сервиса, виден клиентам в каталоге.
// На одного владельца существует не более одного профиля.
type PartnerProfile struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	Phone       string    `db:"phone" json:"phone"`
	City        *string   `db:"city" json:"city,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Verified    bool      `db:"verified" json:"verified"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
