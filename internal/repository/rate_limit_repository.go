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

// ErrRateLimitNotFound возвращается, когда для пары (identifier, request_type)
// ещё нет записи.
var ErrRateLimitNotFound = errors.New("rate limit record not found")

// RateLimitRepository отвечает за таблицу rate_limits.
// Записи никогда не удаляются: устаревшие окна отсекаются предикатами.
type RateLimitRepository struct {
	db *sqlx.DB
}

// NewRateLimitRepository создаёт экземпляр репозитория.
func NewRateLimitRepository(db *sqlx.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Get возвращает запись счётчика.
func (r *RateLimitRepository) Get(ctx context.Context, identifier, requestType string) (*models.RateLimit, error) {
	var rl models.RateLimit
	query := `
		SELECT identifier, request_type, attempts, first_attempt_at, last_attempt_at
		FROM rate_limits
		WHERE identifier = $1 AND request_type = $2
	`
	if err := r.db.GetContext(ctx, &rl, query, identifier, requestType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRateLimitNotFound
		}
		return nil, fmt.Errorf("rate limit repository: get %w", err)
	}

	return &rl, nil
}

// MarkPhoneSend фиксирует успешную отправку кода на номер. Бакет телефона
// отслеживает время с последней отправки, поэтому счётчик всегда
// сбрасывается в единицу.
func (r *RateLimitRepository) MarkPhoneSend(ctx context.Context, phone string) error {
	query := `
		INSERT INTO rate_limits (identifier, request_type, attempts, first_attempt_at, last_attempt_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (identifier, request_type) DO UPDATE
		SET attempts = 1, first_attempt_at = NOW(), last_attempt_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, phone, models.RateLimitTypeSendOTP); err != nil {
		return fmt.Errorf("rate limit repository: mark phone send %w", err)
	}

	return nil
}

// IncrementIPSend атомарно увеличивает счётчик отправок с IP адреса.
// Если якорь окна (first_attempt_at) старше windowStart, окно считается
// истёкшим и счётчик начинается заново. Инкремент выполняется одним
// upsert-ом, без чтения-вычисления-записи.
func (r *RateLimitRepository) IncrementIPSend(ctx context.Context, ip string, windowStart time.Time) error {
	query := `
		INSERT INTO rate_limits (identifier, request_type, attempts, first_attempt_at, last_attempt_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (identifier, request_type) DO UPDATE
		SET attempts = CASE
				WHEN rate_limits.first_attempt_at > $3 THEN rate_limits.attempts + 1
				ELSE 1
			END,
			first_attempt_at = CASE
				WHEN rate_limits.first_attempt_at > $3 THEN rate_limits.first_attempt_at
				ELSE NOW()
			END,
			last_attempt_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, ip, models.RateLimitTypeSendOTPIP, windowStart); err != nil {
		return fmt.Errorf("rate limit repository: increment ip send %w", err)
	}

	return nil
}
