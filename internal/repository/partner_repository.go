package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bekarysoff/avtoservice-backend/internal/models"
)

// ErrApplicationNotFound возвращается и когда заявки нет, и когда она уже
// обработана. Различие намеренно не раскрывается.
var ErrApplicationNotFound = errors.New("partner application not found")

// ErrProfileNotFound возвращается, когда у владельца нет профиля сервиса.
var ErrProfileNotFound = errors.New("partner profile not found")

// PartnerRepository отвечает за таблицы partner_applications и partner_profiles.
type PartnerRepository struct {
	db *sqlx.DB
}

// NewPartnerRepository создаёт экземпляр репозитория.
func NewPartnerRepository(db *sqlx.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// GetPendingApplication возвращает заявку строго в статусе pending.
func (r *PartnerRepository) GetPendingApplication(ctx context.Context, id uuid.UUID) (*models.PartnerApplication, error) {
	var app models.PartnerApplication
	query := `
		SELECT id, phone, full_name, business_name, description, city, status,
		       admin_notes, generated_password, approved_by, approved_at, created_at, updated_at
		FROM partner_applications
		WHERE id = $1 AND status = $2
	`
	if err := r.db.GetContext(ctx, &app, query, id, models.ApplicationStatusPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("partner repository: get pending application %w", err)
	}

	return &app, nil
}

// ApproveApplication переводит заявку из pending в approved, фиксирует
// администратора, момент одобрения, аудиторскую заметку и выбранный пароль.
func (r *PartnerRepository) ApproveApplication(ctx context.Context, id, approvedBy uuid.UUID, note, password string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE partner_applications
		SET status = $2,
			approved_by = $3,
			approved_at = NOW(),
			admin_notes = COALESCE(admin_notes || E'\n', '') || $4,
			generated_password = $5,
			updated_at = NOW()
		WHERE id = $1 AND status = $6
	`, id, models.ApplicationStatusApproved, approvedBy, note, password, models.ApplicationStatusPending)
	if err != nil {
		return fmt.Errorf("partner repository: approve application %w", err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrApplicationNotFound
	}

	return nil
}

// RejectApplication переводит заявку из pending в rejected.
func (r *PartnerRepository) RejectApplication(ctx context.Context, id, rejectedBy uuid.UUID, note string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE partner_applications
		SET status = $2,
			approved_by = $3,
			admin_notes = COALESCE(admin_notes || E'\n', '') || $4,
			updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, id, models.ApplicationStatusRejected, rejectedBy, note, models.ApplicationStatusPending)
	if err != nil {
		return fmt.Errorf("partner repository: reject application %w", err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrApplicationNotFound
	}

	return nil
}

// GetProfileByOwner возвращает профиль сервиса по владельцу.
func (r *PartnerRepository) GetProfileByOwner(ctx context.Context, ownerID uuid.UUID) (*models.PartnerProfile, error) {
	var profile models.PartnerProfile
	query := `
		SELECT id, owner_id, name, phone, city, description, verified, created_at, updated_at
		FROM partner_profiles
		WHERE owner_id = $1
	`
	if err := r.db.GetContext(ctx, &profile, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("partner repository: get profile by owner %w", err)
	}

	return &profile, nil
}

// UpsertProfile создаёт или обновляет профиль сервиса. На владельца
// существует не более одного профиля.
func (r *PartnerRepository) UpsertProfile(ctx context.Context, profile *models.PartnerProfile) error {
	query := `
		INSERT INTO partner_profiles (owner_id, name, phone, city, description, verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id) DO UPDATE
		SET name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			city = EXCLUDED.city,
			description = COALESCE(EXCLUDED.description, partner_profiles.description),
			verified = EXCLUDED.verified,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		profile.OwnerID, profile.Name, profile.Phone, profile.City, profile.Description, profile.Verified,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return fmt.Errorf("partner repository: upsert profile %w", err)
	}

	return nil
}
