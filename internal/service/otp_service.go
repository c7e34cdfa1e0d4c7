package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bekarysoff/avtoservice-backend/internal/logger"
	"github.com/bekarysoff/avtoservice-backend/internal/models"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
	"github.com/bekarysoff/avtoservice-backend/internal/repository"
	"github.com/bekarysoff/avtoservice-backend/internal/validation"
)

// Идентификатор бакета для запросов без определимого IP адреса.
// Все анонимные вызовы делят один бакет.
const unknownIPIdentifier = "unknown"

// OTPStore описывает хранилище кодов подтверждения.
type OTPStore interface {
	CreateCode(ctx context.Context, phone, code string, expiresAt time.Time) (*models.OTPCode, error)
	Consume(ctx context.Context, phone, code string) (*models.OTPCode, error)
}

// RateLimitStore описывает хранилище счётчиков отправок.
type RateLimitStore interface {
	Get(ctx context.Context, identifier, requestType string) (*models.RateLimit, error)
	MarkPhoneSend(ctx context.Context, phone string) error
	IncrementIPSend(ctx context.Context, ip string, windowStart time.Time) error
}

// IdentityStore описывает операции над учётными записями, нужные
// проверке кода.
type IdentityStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
}

// SMSGateway отправляет сообщение и возвращает идентификатор в шлюзе.
type SMSGateway interface {
	Send(ctx context.Context, phone, text string) (string, error)
}

// SessionMinter выпускает сессию для подтверждённого пользователя.
type SessionMinter interface {
	Mint(ctx context.Context, user *models.User, role string, meta map[string]string) (*TokenPair, error)
}

// OTPConfig задаёт времена жизни и лимиты выдачи кодов.
type OTPConfig struct {
	CodeTTL       time.Duration
	PhoneCooldown time.Duration
	IPWindow      time.Duration
	IPMaxAttempts int
}

// OTPService выдаёт и проверяет коды подтверждения номера телефона.
type OTPService struct {
	codes      OTPStore
	limits     RateLimitStore
	identities IdentityStore
	gateway    SMSGateway
	sessions   SessionMinter
	cfg        OTPConfig
}

// NewOTPService создаёт сервис кодов подтверждения.
func NewOTPService(codes OTPStore, limits RateLimitStore, identities IdentityStore, gateway SMSGateway, sessions SessionMinter, cfg OTPConfig) *OTPService {
	return &OTPService{
		codes:      codes,
		limits:     limits,
		identities: identities,
		gateway:    gateway,
		sessions:   sessions,
		cfg:        cfg,
	}
}

// SendResult возвращает итог отправки кода. Сам код наружу не отдаётся.
type SendResult struct {
	SMSID   string
	Message string
}

// VerifyResult возвращает итог проверки кода.
type VerifyResult struct {
	Session   *TokenPair
	IsNewUser bool
}

// Send выдаёт новый шестизначный код и отправляет его по SMS.
// Порядок шагов строго последовательный: проверка лимитов, генерация,
// запись, отправка, учёт отправки. Учёт обновляется только после
// успешной отправки.
func (s *OTPService) Send(ctx context.Context, phone, ip string) (*SendResult, error) {
	phone = validation.NormalizePhone(phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	if ip == "" {
		ip = unknownIPIdentifier
	}

	now := time.Now()

	// Лимит на телефон: не чаще одной отправки в минуту.
	if err := s.checkPhoneLimit(ctx, phone, now); err != nil {
		return nil, err
	}

	// Лимит на IP: не более N отправок за окно.
	if err := s.checkIPLimit(ctx, ip, now); err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать код")
	}

	if _, err := s.codes.CreateCode(ctx, phone, code, now.Add(s.cfg.CodeTTL)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось сохранить код подтверждения")
	}

	text := fmt.Sprintf("Ваш код подтверждения: %s. Код действует %d минут.",
		code, int(s.cfg.CodeTTL.Minutes()))

	smsID, err := s.gateway.Send(ctx, phone, text)
	if err != nil {
		// Код уже записан и просто истечёт неиспользованным.
		return nil, err
	}

	// Учёт отправки. Сбой учёта не отменяет уже доставленное SMS.
	if err := s.limits.MarkPhoneSend(ctx, phone); err != nil {
		s.warnBookkeeping(phone, err)
	}
	if err := s.limits.IncrementIPSend(ctx, ip, now.Add(-s.cfg.IPWindow)); err != nil {
		s.warnBookkeeping(ip, err)
	}

	return &SendResult{
		SMSID:   smsID,
		Message: "код подтверждения отправлен",
	}, nil
}

// Verify гасит код и возвращает сессию. Новый номер получает учётную
// запись с подтверждённым телефоном.
func (s *OTPService) Verify(ctx context.Context, phone, code string, meta map[string]string) (*VerifyResult, error) {
	phone = validation.NormalizePhone(phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateOTPCode(code); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	if _, err := s.codes.Consume(ctx, phone, code); err != nil {
		if errors.Is(err, repository.ErrOTPCodeNotFound) {
			// Неверный, истёкший и уже использованный код неразличимы
			// для клиента.
			return nil, apperror.ErrInvalidOrExpired
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось проверить код подтверждения")
	}

	isNew := false
	user, err := s.identities.GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrUserNotFound) {
		user = &models.User{
			Phone:         phone,
			Locale:        "ru",
			PhoneVerified: true,
		}
		if err := s.identities.Create(ctx, user); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeIdentity, "не удалось создать учётную запись")
		}
		isNew = true
	} else if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeIdentity, "не удалось найти учётную запись")
	}

	role := s.resolveRole(ctx, user.ID)

	session, err := s.sessions.Mint(ctx, user, role, meta)
	if err != nil {
		// Код уже погашен, повторная попытка с ним невозможна.
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"phone": phone,
				"error": err.Error(),
			}).Error("otp service: код погашен, но сессия не создана")
		}
		return nil, err
	}

	return &VerifyResult{
		Session:   session,
		IsNewUser: isNew,
	}, nil
}

// checkPhoneLimit отклоняет отправку, если с последней прошло меньше минуты.
func (s *OTPService) checkPhoneLimit(ctx context.Context, phone string, now time.Time) error {
	rl, err := s.limits.Get(ctx, phone, models.RateLimitTypeSendOTP)
	if errors.Is(err, repository.ErrRateLimitNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось проверить лимит отправок")
	}

	if now.Sub(rl.LastAttemptAt) < s.cfg.PhoneCooldown {
		return apperror.New(apperror.ErrCodeRateLimited,
			"код уже отправлен, повторная отправка возможна через минуту")
	}

	return nil
}

// checkIPLimit отклоняет отправку при исчерпании окна для IP адреса.
func (s *OTPService) checkIPLimit(ctx context.Context, ip string, now time.Time) error {
	rl, err := s.limits.Get(ctx, ip, models.RateLimitTypeSendOTPIP)
	if errors.Is(err, repository.ErrRateLimitNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось проверить лимит отправок")
	}

	// Якорь окна — первая отправка в серии.
	if rl.FirstAttemptAt.After(now.Add(-s.cfg.IPWindow)) && rl.Attempts >= s.cfg.IPMaxAttempts {
		return apperror.New(apperror.ErrCodeRateLimited,
			fmt.Sprintf("слишком много запросов, попробуйте через %d минут", int(s.cfg.IPWindow.Minutes())))
	}

	return nil
}

// resolveRole выбирает роль для токена: партнёр, админ или клиент.
func (s *OTPService) resolveRole(ctx context.Context, userID uuid.UUID) string {
	for _, role := range []string{models.RoleAdmin, models.RolePartner} {
		has, err := s.identities.HasRole(ctx, userID, role)
		if err != nil {
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Warn("otp service: не удалось проверить роль")
			}
			break
		}
		if has {
			return role
		}
	}
	return models.RoleClient
}

func (s *OTPService) warnBookkeeping(identifier string, err error) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"identifier": identifier,
			"error":      err.Error(),
		}).Warn("otp service: не удалось обновить счётчик отправок")
	}
}

// generateCode возвращает равномерно случайный шестизначный код
// из диапазона [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
