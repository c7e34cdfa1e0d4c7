package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bekarysoff/avtoservice-backend/internal/models"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	manager := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
	userID := uuid.New()

	pair, accessExp, refreshExp, err := manager.GeneratePair(userID, models.RolePartner)
	if err != nil {
		t.Fatalf("не удалось выпустить токены: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("оба токена должны быть заполнены")
	}
	if !accessExp.Before(refreshExp) {
		t.Fatalf("access должен истекать раньше refresh")
	}

	parsedID, role, err := manager.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("не удалось разобрать access токен: %v", err)
	}
	if parsedID != userID {
		t.Fatalf("ожидался userID %s, получили %s", userID, parsedID)
	}
	if role != models.RolePartner {
		t.Fatalf("роль должна сохраняться в токене, получили %q", role)
	}
}

func TestTokenManager_ParseRejectsWrongSecret(t *testing.T) {
	manager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := NewTokenManager("other-secret", "refresh-secret", time.Minute, time.Hour)

	pair, _, _, err := manager.GeneratePair(uuid.New(), models.RoleClient)
	if err != nil {
		t.Fatalf("не удалось выпустить токены: %v", err)
	}

	if _, _, err := other.ParseAccess(pair.AccessToken); err == nil {
		t.Fatalf("токен с чужой подписью должен отклоняться")
	}
}

func TestTokenManager_ParseRejectsExpired(t *testing.T) {
	manager := NewTokenManager("access-secret", "refresh-secret", -time.Minute, time.Hour)

	pair, _, _, err := manager.GeneratePair(uuid.New(), models.RoleClient)
	if err != nil {
		t.Fatalf("не удалось выпустить токены: %v", err)
	}

	if _, _, err := manager.ParseAccess(pair.AccessToken); err == nil {
		t.Fatalf("истёкший токен должен отклоняться")
	}
}
