package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bekarysoff/avtoservice-backend/internal/models"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
	"github.com/bekarysoff/avtoservice-backend/internal/repository"
)

// mockPartnerIdentityStore реализует PartnerIdentityStore для тестов.
type mockPartnerIdentityStore struct {
	usersByPhone map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	roles        map[uuid.UUID][]string
	listable     bool
}

func newMockPartnerIdentityStore() *mockPartnerIdentityStore {
	return &mockPartnerIdentityStore{
		usersByPhone: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		roles:        make(map[uuid.UUID][]string),
		listable:     true,
	}
}

func (m *mockPartnerIdentityStore) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.usersByPhone[user.Phone]; ok {
		return repository.ErrPhoneTaken
	}
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	m.usersByPhone[user.Phone] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockPartnerIdentityStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	if user, ok := m.usersByPhone[phone]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockPartnerIdentityStore) List(ctx context.Context, page, perPage int) ([]models.User, error) {
	if !m.listable {
		return nil, nil
	}
	var all []models.User
	for _, u := range m.usersByID {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Phone < all[j].Phone })

	start := (page - 1) * perPage
	if start >= len(all) {
		return nil, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *mockPartnerIdentityStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	user, ok := m.usersByID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = &passwordHash
	return nil
}

func (m *mockPartnerIdentityStore) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	for _, r := range m.roles[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPartnerIdentityStore) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	m.roles[userID] = append(m.roles[userID], role)
	return nil
}

// mockPartnerStore реализует PartnerStore для тестов.
type mockPartnerStore struct {
	applications map[uuid.UUID]*models.PartnerApplication
	profiles     map[uuid.UUID]*models.PartnerProfile
}

func newMockPartnerStore() *mockPartnerStore {
	return &mockPartnerStore{
		applications: make(map[uuid.UUID]*models.PartnerApplication),
		profiles:     make(map[uuid.UUID]*models.PartnerProfile),
	}
}

func (m *mockPartnerStore) GetPendingApplication(ctx context.Context, id uuid.UUID) (*models.PartnerApplication, error) {
	app, ok := m.applications[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return nil, repository.ErrApplicationNotFound
	}
	return app, nil
}

func (m *mockPartnerStore) ApproveApplication(ctx context.Context, id, approvedBy uuid.UUID, note, password string) error {
	app, ok := m.applications[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return repository.ErrApplicationNotFound
	}
	now := time.Now()
	app.Status = models.ApplicationStatusApproved
	app.AdminNotes = &note
	app.GeneratedPassword = &password
	app.ApprovedBy = &approvedBy
	app.ApprovedAt = &now
	return nil
}

func (m *mockPartnerStore) RejectApplication(ctx context.Context, id, rejectedBy uuid.UUID, note string) error {
	app, ok := m.applications[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return repository.ErrApplicationNotFound
	}
	app.Status = models.ApplicationStatusRejected
	app.AdminNotes = &note
	return nil
}

func (m *mockPartnerStore) GetProfileByOwner(ctx context.Context, ownerID uuid.UUID) (*models.PartnerProfile, error) {
	if profile, ok := m.profiles[ownerID]; ok {
		return profile, nil
	}
	return nil, repository.ErrProfileNotFound
}

func (m *mockPartnerStore) UpsertProfile(ctx context.Context, profile *models.PartnerProfile) error {
	if existing, ok := m.profiles[profile.OwnerID]; ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.ID = uuid.New()
		profile.CreatedAt = time.Now()
	}
	profile.UpdatedAt = time.Now()
	m.profiles[profile.OwnerID] = profile
	return nil
}

func strPtr(s string) *string { return &s }

func pendingApplication(store *mockPartnerStore, phone string) *models.PartnerApplication {
	app := &models.PartnerApplication{
		ID:           uuid.New(),
		Phone:        phone,
		FullName:     "Асхат Нурланов",
		BusinessName: strPtr("СТО Восток"),
		City:         strPtr("Алматы"),
		Status:       models.ApplicationStatusPending,
		CreatedAt:    time.Now(),
	}
	store.applications[app.ID] = app
	return app
}

func TestPartnerService_ApproveCreatesAccount(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, false)

	app := pendingApplication(partners, "+77011234567")
	adminID := uuid.New()

	res, err := service.ApproveApplication(context.Background(), adminID, app.ID, "secret123")
	if err != nil {
		t.Fatalf("одобрение вернуло ошибку: %v", err)
	}

	user, ok := identities.usersByPhone["+77011234567"]
	if !ok {
		t.Fatalf("учётная запись должна быть создана")
	}
	if res.UserID != user.ID {
		t.Fatalf("результат должен ссылаться на созданную учётную запись")
	}
	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("secret123")) != nil {
		t.Fatalf("пароль должен быть захеширован bcrypt")
	}

	if has, _ := identities.HasRole(context.Background(), user.ID, models.RolePartner); !has {
		t.Fatalf("пользователю должна быть назначена роль партнёра")
	}

	profile, ok := partners.profiles[user.ID]
	if !ok {
		t.Fatalf("профиль сервиса должен быть создан")
	}
	if !profile.Verified {
		t.Fatalf("профиль партнёра создаётся проверенным")
	}
	if profile.Name != "СТО Восток" {
		t.Fatalf("имя профиля берётся из названия бизнеса, получили %q", profile.Name)
	}

	if app.Status != models.ApplicationStatusApproved {
		t.Fatalf("заявка должна перейти в approved, получили %q", app.Status)
	}
	if app.ApprovedBy == nil || *app.ApprovedBy != adminID {
		t.Fatalf("заявка должна хранить одобрившего администратора")
	}
}

func TestPartnerService_ApproveDuplicatePhoneResetsPassword(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, false)

	// Номер уже зарегистрирован обычным клиентом.
	existing := &models.User{Phone: "+77011234567"}
	if err := identities.Create(context.Background(), existing); err != nil {
		t.Fatalf("не удалось подготовить пользователя: %v", err)
	}

	app := pendingApplication(partners, "+77011234567")

	res, err := service.ApproveApplication(context.Background(), uuid.New(), app.ID, "newpass99")
	if err != nil {
		t.Fatalf("одобрение вернуло ошибку: %v", err)
	}

	if len(identities.usersByID) != 1 {
		t.Fatalf("дубликат учётной записи не должен создаваться, получили %d", len(identities.usersByID))
	}
	if res.UserID != existing.ID {
		t.Fatalf("результат должен ссылаться на существующую учётную запись")
	}
	if existing.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*existing.PasswordHash), []byte("newpass99")) != nil {
		t.Fatalf("пароль существующего пользователя должен быть заменён")
	}
	if _, ok := partners.profiles[existing.ID]; !ok {
		t.Fatalf("профиль должен быть привязан к существующему пользователю")
	}
}

func TestPartnerService_ApproveNonPendingApplication(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, false)

	app := pendingApplication(partners, "+77011234567")
	app.Status = models.ApplicationStatusApproved

	_, err := service.ApproveApplication(context.Background(), uuid.New(), app.ID, "secret123")
	if !apperror.Is(err, apperror.ErrCodeApplication) {
		t.Fatalf("обработанная заявка должна отклоняться, получили %v", err)
	}

	_, err = service.ApproveApplication(context.Background(), uuid.New(), uuid.New(), "secret123")
	if !apperror.Is(err, apperror.ErrCodeApplication) {
		t.Fatalf("несуществующая заявка должна отклоняться, получили %v", err)
	}
}

func TestPartnerService_ApproveWeakPassword(t *testing.T) {
	service := NewPartnerService(newMockPartnerIdentityStore(), newMockPartnerStore(), false)

	_, err := service.ApproveApplication(context.Background(), uuid.New(), uuid.New(), "short")
	if !apperror.Is(err, apperror.ErrCodeValidation) {
		t.Fatalf("слабый пароль должен отклоняться до обращения к хранилищу, получили %v", err)
	}
}

func TestPartnerService_RejectApplication(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, false)

	app := pendingApplication(partners, "+77011234567")

	if err := service.RejectApplication(context.Background(), uuid.New(), app.ID, ""); err != nil {
		t.Fatalf("отклонение вернуло ошибку: %v", err)
	}
	if app.Status != models.ApplicationStatusRejected {
		t.Fatalf("заявка должна перейти в rejected, получили %q", app.Status)
	}
	if app.AdminNotes == nil || *app.AdminNotes == "" {
		t.Fatalf("отклонение должно оставить заметку")
	}

	// Отклонённая заявка больше не одобряется.
	_, err := service.ApproveApplication(context.Background(), uuid.New(), app.ID, "secret123")
	if !apperror.Is(err, apperror.ErrCodeApplication) {
		t.Fatalf("отклонённая заявка не должна одобряться, получили %v", err)
	}
}

func TestPartnerService_CreateTestPartnerIdempotent(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, false)

	in := TestPartnerInput{
		Phone:        "+7 701 123 45 67",
		Password:     "testpass1",
		FullName:     "Тестовый Партнёр",
		BusinessName: "Тестовое СТО",
		City:         "Астана",
	}

	ctx := context.Background()
	first, err := service.CreateTestPartner(ctx, in)
	if err != nil {
		t.Fatalf("первый вызов вернул ошибку: %v", err)
	}
	if first.Phone != "+77011234567" {
		t.Fatalf("номер должен нормализоваться, получили %q", first.Phone)
	}

	second, err := service.CreateTestPartner(ctx, in)
	if err != nil {
		t.Fatalf("повторный вызов вернул ошибку: %v", err)
	}

	if first.UserID != second.UserID {
		t.Fatalf("повторный вызов должен вернуть ту же учётную запись")
	}
	if first.ProfileID != second.ProfileID {
		t.Fatalf("повторный вызов должен вернуть тот же профиль")
	}
	if len(identities.usersByID) != 1 || len(partners.profiles) != 1 {
		t.Fatalf("повторные вызовы не должны плодить записи")
	}
	if roles := identities.roles[first.UserID]; len(roles) != 1 {
		t.Fatalf("роль назначается один раз, получили %v", roles)
	}
}

func TestPartnerService_ScanFallbackFindsUser(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, true)

	ctx := context.Background()
	existing := &models.User{Phone: "+77011234567"}
	if err := identities.Create(ctx, existing); err != nil {
		t.Fatalf("не удалось подготовить пользователя: %v", err)
	}

	res, err := service.CreateTestPartner(ctx, TestPartnerInput{
		Phone:    "+77011234567",
		Password: "testpass1",
	})
	if err != nil {
		t.Fatalf("провижининг с перебором вернул ошибку: %v", err)
	}
	if res.UserID != existing.ID {
		t.Fatalf("перебор должен найти существующего пользователя")
	}
}

func TestPartnerService_ScanFallbackExhausted(t *testing.T) {
	identities := newMockPartnerIdentityStore()
	partners := newMockPartnerStore()
	service := NewPartnerService(identities, partners, true)

	ctx := context.Background()
	existing := &models.User{Phone: "+77011234567"}
	if err := identities.Create(ctx, existing); err != nil {
		t.Fatalf("не удалось подготовить пользователя: %v", err)
	}
	// Перечисление не отдаёт ни одной записи: номер занят, а владелец
	// не находится.
	identities.listable = false

	_, err := service.CreateTestPartner(ctx, TestPartnerInput{
		Phone:    "+77011234567",
		Password: "testpass1",
	})
	if !apperror.Is(err, apperror.ErrCodeIdentityScan) {
		t.Fatalf("исчерпанный перебор должен вернуть ошибку поиска, получили %v", err)
	}
}
