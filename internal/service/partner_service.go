package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/bekarysoff/avtoservice-backend/internal/logger"
	"github.com/bekarysoff/avtoservice-backend/internal/models"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
	"github.com/bekarysoff/avtoservice-backend/internal/repository"
	"github.com/bekarysoff/avtoservice-backend/internal/validation"
)

// Размер страницы аварийного перебора пользователей.
const phoneScanPageSize = 100

// PartnerIdentityStore описывает операции над учётными записями,
// нужные провижинингу партнёров.
type PartnerIdentityStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	List(ctx context.Context, page, perPage int) ([]models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
}

// PartnerStore описывает хранилище заявок и профилей сервисов.
type PartnerStore interface {
	GetPendingApplication(ctx context.Context, id uuid.UUID) (*models.PartnerApplication, error)
	ApproveApplication(ctx context.Context, id, approvedBy uuid.UUID, note, password string) error
	RejectApplication(ctx context.Context, id, rejectedBy uuid.UUID, note string) error
	GetProfileByOwner(ctx context.Context, ownerID uuid.UUID) (*models.PartnerProfile, error)
	UpsertProfile(ctx context.Context, profile *models.PartnerProfile) error
}

// PartnerService создаёт и чинит партнёрские аккаунты: учётная запись,
// роль, профиль сервиса. Операции идемпотентны по номеру телефона.
type PartnerService struct {
	identities   PartnerIdentityStore
	partners     PartnerStore
	scanFallback bool
}

// NewPartnerService создаёт сервис провижининга партнёров.
func NewPartnerService(identities PartnerIdentityStore, partners PartnerStore, scanFallback bool) *PartnerService {
	return &PartnerService{
		identities:   identities,
		partners:     partners,
		scanFallback: scanFallback,
	}
}

// ProvisionResult возвращает созданный или обновлённый аккаунт.
type ProvisionResult struct {
	ProfileID uuid.UUID
	UserID    uuid.UUID
	Phone     string
}

// provisionInput — данные для создания партнёрского аккаунта.
type provisionInput struct {
	Phone        string
	Password     string
	FullName     *string
	BusinessName *string
	Description  *string
	City         *string
}

// TestPartnerInput — данные тестового партнёра, без привязки к заявке.
type TestPartnerInput struct {
	Phone        string
	Password     string
	FullName     string
	BusinessName string
	City         string
}

// ApproveApplication одобряет заявку и создаёт партнёрский аккаунт.
// Заявка должна находиться в статусе pending.
func (s *PartnerService) ApproveApplication(ctx context.Context, adminID, applicationID uuid.UUID, password string) (*ProvisionResult, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	app, err := s.partners.GetPendingApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, apperror.ErrApplicationMissing
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось загрузить заявку")
	}

	fullName := app.FullName
	result, err := s.provision(ctx, provisionInput{
		Phone:        app.Phone,
		Password:     password,
		FullName:     &fullName,
		BusinessName: app.BusinessName,
		Description:  app.Description,
		City:         app.City,
	})
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("Партнёрский аккаунт создан, профиль %s", result.ProfileID)
	if err := s.partners.ApproveApplication(ctx, applicationID, adminID, note, password); err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, apperror.ErrApplicationMissing
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось обновить заявку")
	}

	return result, nil
}

// RejectApplication отклоняет заявку в статусе pending.
func (s *PartnerService) RejectApplication(ctx context.Context, adminID, applicationID uuid.UUID, note string) error {
	if note == "" {
		note = "Заявка отклонена"
	}

	if err := s.partners.RejectApplication(ctx, applicationID, adminID, note); err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return apperror.ErrApplicationMissing
		}
		return apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось обновить заявку")
	}

	return nil
}

// CreateTestPartner создаёт партнёрский аккаунт без заявки. Повторные
// вызовы с тем же номером сходятся к одному аккаунту, одной роли и
// одному профилю.
func (s *PartnerService) CreateTestPartner(ctx context.Context, in TestPartnerInput) (*ProvisionResult, error) {
	phone := validation.NormalizePhone(in.Phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	input := provisionInput{Phone: phone, Password: in.Password}
	if in.FullName != "" {
		input.FullName = &in.FullName
	}
	if in.BusinessName != "" {
		input.BusinessName = &in.BusinessName
	}
	if in.City != "" {
		input.City = &in.City
	}

	return s.provision(ctx, input)
}

// provision приводит аккаунт для номера к состоянию "одна учётная запись,
// одна роль партнёра, один проверенный профиль".
func (s *PartnerService) provision(ctx context.Context, in provisionInput) (*ProvisionResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeIdentity, "не удалось захешировать пароль")
	}
	passwordHash := string(hash)

	user := &models.User{
		Phone:         in.Phone,
		PasswordHash:  &passwordHash,
		FullName:      in.FullName,
		BusinessName:  in.BusinessName,
		City:          in.City,
		Locale:        "ru",
		PhoneVerified: true,
	}

	err = s.identities.Create(ctx, user)
	switch {
	case errors.Is(err, repository.ErrPhoneTaken):
		// Номер уже зарегистрирован: находим владельца и сбрасываем
		// ему пароль вместо создания дубликата.
		existing, findErr := s.findUserByPhone(ctx, in.Phone)
		if findErr != nil {
			return nil, findErr
		}

		if updErr := s.identities.UpdatePassword(ctx, existing.ID, passwordHash); updErr != nil {
			return nil, apperror.Wrap(updErr, apperror.ErrCodeIdentity, "не удалось обновить пароль")
		}
		user = existing
	case err != nil:
		return nil, apperror.Wrap(err, apperror.ErrCodeIdentity, "не удалось создать учётную запись")
	}

	// Роль назначается один раз; при сбое аккаунт остаётся без роли,
	// откат не выполняется — состояние чинится повторным вызовом.
	hasRole, err := s.identities.HasRole(ctx, user.ID, models.RolePartner)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось проверить роль")
	}
	if !hasRole {
		if err := s.identities.AssignRole(ctx, user.ID, models.RolePartner); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось назначить роль")
		}
	}

	profile := &models.PartnerProfile{
		OwnerID:     user.ID,
		Name:        profileName(in),
		Phone:       in.Phone,
		City:        in.City,
		Description: in.Description,
		Verified:    true,
	}

	if err := s.partners.UpsertProfile(ctx, profile); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось сохранить профиль сервиса")
	}

	return &ProvisionResult{
		ProfileID: profile.ID,
		UserID:    user.ID,
		Phone:     in.Phone,
	}, nil
}

// findUserByPhone находит владельца номера. По умолчанию — прямой поиск
// по индексу; аварийный режим перебирает пользователей постранично.
// Если провайдер сообщил "номер занят", а владелец не нашёлся, данные
// рассогласованы — это фатальная ошибка, а не повод молча продолжить.
func (s *PartnerService) findUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	if !s.scanFallback {
		user, err := s.identities.GetByPhone(ctx, phone)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeIdentityScan,
				"номер зарегистрирован, но учётная запись не найдена")
		}
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeIdentity, "не удалось найти учётную запись")
		}
		return user, nil
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{"phone": phone}).
			Warn("partner service: используется постраничный перебор пользователей")
	}

	for page := 1; ; page++ {
		users, err := s.identities.List(ctx, page, phoneScanPageSize)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeIdentity, "не удалось перечислить учётные записи")
		}

		for i := range users {
			if users[i].Phone == phone {
				return &users[i], nil
			}
		}

		if len(users) < phoneScanPageSize {
			return nil, apperror.New(apperror.ErrCodeIdentityScan,
				"номер зарегистрирован, но учётная запись не найдена")
		}
	}
}

// profileName выбирает имя профиля: название бизнеса, иначе имя владельца.
func profileName(in provisionInput) string {
	if in.BusinessName != nil && *in.BusinessName != "" {
		return *in.BusinessName
	}
	if in.FullName != nil && *in.FullName != "" {
		return *in.FullName
	}
	return in.Phone
}
