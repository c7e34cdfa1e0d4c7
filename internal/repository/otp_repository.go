package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bekarysoff/avtoservice-backend/internal/models"
)

// ErrOTPCodeNotFound возвращается, когда подходящий код не найден:
// код неверен, истёк или уже был использован.
var ErrOTPCodeNotFound = errors.New("otp code not found")

// OTPRepository отвечает за таблицу otp_codes.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// CreateCode сохраняет новый код подтверждения.
func (r *OTPRepository) CreateCode(ctx context.Context, phone, code string, expiresAt time.Time) (*models.OTPCode, error) {
	var otp models.OTPCode
	query := `
		INSERT INTO otp_codes (phone, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, phone, code, verified, expires_at, created_at
	`
	if err := r.db.GetContext(ctx, &otp, query, phone, code, expiresAt); err != nil {
		return nil, fmt.Errorf("otp repository: create code %w", err)
	}

	return &otp, nil
}

// Consume помечает использованным самый свежий неиспользованный и
// неистёкший код для пары (phone, code). Проверка и пометка выполняются
// одним условным UPDATE, поэтому два конкурентных запроса не могут
// погасить один и тот же код дважды.
func (r *OTPRepository) Consume(ctx context.Context, phone, code string) (*models.OTPCode, error) {
	var otp models.OTPCode
	query := `
		UPDATE otp_codes SET verified = TRUE
		WHERE id = (
			SELECT id FROM otp_codes
			WHERE phone = $1 AND code = $2 AND verified = FALSE AND expires_at > NOW()
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id, phone, code, verified, expires_at, created_at
	`
	if err := r.db.GetContext(ctx, &otp, query, phone, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPCodeNotFound
		}
		return nil, fmt.Errorf("otp repository: consume %w", err)
	}

	return &otp, nil
}
