package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bekarysoff/avtoservice-backend/internal/logger"
	"github.com/bekarysoff/avtoservice-backend/internal/models"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
)

// SessionRepository описывает зависимости SessionService от слоя хранилища.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
}

// SessionService выпускает сессии для пользователей с подтверждённым
// номером телефона. Собственного rate limit нет.
type SessionService struct {
	repo   SessionRepository
	tokens *TokenManager
}

// NewSessionService создаёт сервис сессий.
func NewSessionService(repo SessionRepository, tokens *TokenManager) *SessionService {
	return &SessionService{repo: repo, tokens: tokens}
}

// Mint выпускает пару токенов и сохраняет сессию. Любая ошибка фатальна
// для вызывающего потока.
func (s *SessionService) Mint(ctx context.Context, user *models.User, role string, meta map[string]string) (*TokenPair, error) {
	tokenPair, _, refreshExp, err := s.tokens.GeneratePair(user.ID, role)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeSession, "не удалось выпустить токены")
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	if meta != nil {
		if ua, ok := meta["user_agent"]; ok && ua != "" {
			session.UserAgent = &ua
		}
		if ip, ok := meta["ip"]; ok && ip != "" {
			session.IPAddress = &ip
		}
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeSession, "не удалось сохранить сессию")
	}

	// Обновляем время последнего входа
	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		// Логируем ошибку, но не прерываем процесс
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": user.ID,
				"error":   err.Error(),
			}).Warn("session service: не удалось обновить last_login_at")
		}
	}

	return tokenPair, nil
}
