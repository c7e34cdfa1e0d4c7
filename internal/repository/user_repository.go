package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bekarysoff/avtoservice-backend/internal/models"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrPhoneTaken возвращается при попытке создать второго пользователя
// с тем же номером телефона.
var ErrPhoneTaken = errors.New("phone already registered")

const uniqueViolation = "23505"

// UserRepository отвечает за работу с таблицами users, user_roles и sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (phone, password_hash, full_name, business_name, city, locale, phone_verified, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Phone, user.PasswordHash, user.FullName, user.BusinessName, user.City, user.Locale, user.PhoneVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrPhoneTaken
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	user.IsActive = true
	return nil
}

// GetByPhone возвращает пользователя по номеру телефона.
// Телефон покрыт уникальным индексом, это прямой поиск.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, phone, password_hash, full_name, business_name, city, locale,
		       phone_verified, is_active, last_login_at, created_at, updated_at
		FROM users
		WHERE phone = $1
	`
	if err := r.db.GetContext(ctx, &user, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by phone %w", err)
	}

	return &user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, phone, password_hash, full_name, business_name, city, locale,
		       phone_verified, is_active, last_login_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}

	return &user, nil
}

// List возвращает страницу пользователей, отсортированных по дате создания.
// Используется только аварийным перебором при поиске по телефону.
func (r *UserRepository) List(ctx context.Context, page, perPage int) ([]models.User, error) {
	if page < 1 {
		page = 1
	}

	var users []models.User
	query := `
		SELECT id, phone, password_hash, full_name, business_name, city, locale,
		       phone_verified, is_active, last_login_at, created_at, updated_at
		FROM users
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &users, query, perPage, (page-1)*perPage); err != nil {
		return nil, fmt.Errorf("user repository: list %w", err)
	}

	return users, nil
}

// UpdatePassword заменяет хеш пароля пользователя.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("user repository: update password %w", err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// HasRole проверяет, назначена ли пользователю роль.
func (r *UserRepository) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM user_roles WHERE user_id = $1 AND role = $2
	`, userID, role)
	if err != nil {
		return false, fmt.Errorf("user repository: has role %w", err)
	}
	return count > 0, nil
}

// AssignRole назначает пользователю роль. Повторное назначение той же
// роли не создаёт дубликата.
func (r *UserRepository) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`, userID, role)
	if err != nil {
		return fmt.Errorf("user repository: assign role %w", err)
	}
	return nil
}

// CreateSession сохраняет новую сессию пользователя.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}
