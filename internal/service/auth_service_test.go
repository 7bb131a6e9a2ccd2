package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type mockUserRepo struct {
	users           map[string]*models.User
	createErr       error
	created         []*models.User
	passwordSet     string
	statusSet       map[string]models.AccountStatus
	deactivated     []string
	deactivatedRole models.Role
	pending         []models.User
	stats           models.NetworkStats
	highlights      models.PublicationHighlights
	emailUpdated    string
	avatarSet       string
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*models.User), statusSet: make(map[string]models.AccountStatus)}
	for _, user := range users {
		m.users[user.Matricula] = user
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, user)
	m.users[user.Matricula] = user
	return nil
}

func (m *mockUserRepo) GetByMatricula(ctx context.Context, matricula string) (*models.User, error) {
	user, ok := m.users[matricula]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, matricula, hash string) error {
	m.passwordSet = hash
	return nil
}

func (m *mockUserRepo) UpdatePasswordByEmail(ctx context.Context, email, hash string) error {
	m.passwordSet = hash
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, matricula string, req dto.UpdateProfileRequest) (int, error) {
	return 1, nil
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, matricula, path string) error {
	m.avatarSet = path
	return nil
}

func (m *mockUserRepo) UpdateEmail(ctx context.Context, matricula, email string) error {
	m.emailUpdated = email
	return nil
}

func (m *mockUserRepo) SetStatus(ctx context.Context, matricula string, status models.AccountStatus) error {
	m.statusSet[matricula] = status
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, matricula string, role models.Role) error {
	m.deactivated = append(m.deactivated, matricula)
	m.deactivatedRole = role
	return nil
}

func (m *mockUserRepo) ExistingMatriculas(ctx context.Context, matriculas []string) ([]string, error) {
	found := make([]string, 0, len(matriculas))
	for _, matricula := range matriculas {
		if _, ok := m.users[matricula]; ok {
			found = append(found, matricula)
		}
	}
	return found, nil
}

func (m *mockUserRepo) ListPendingAdvisors(ctx context.Context) ([]models.User, error) {
	return m.pending, nil
}

func (m *mockUserRepo) NetworkStats(ctx context.Context, matricula string) (models.NetworkStats, error) {
	return m.stats, nil
}

func (m *mockUserRepo) PublicationHighlights(ctx context.Context, matricula string) (models.PublicationHighlights, error) {
	return m.highlights, nil
}

type mockVerificationRepo struct {
	createErr     error
	consumeErr    error
	accessErr     error
	accessInvalid bool
	createdCodes  []*models.VerificationCode
	consumedCodes []string
	burnedAccess  []string
}

func (m *mockVerificationRepo) CreateCode(ctx context.Context, code *models.VerificationCode) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdCodes = append(m.createdCodes, code)
	return nil
}

func (m *mockVerificationRepo) ConsumeCode(ctx context.Context, email, code string, now time.Time) error {
	if m.consumeErr != nil {
		return m.consumeErr
	}
	m.consumedCodes = append(m.consumedCodes, code)
	return nil
}

func (m *mockVerificationRepo) AccessCodeValid(ctx context.Context, code string) (bool, error) {
	return !m.accessInvalid, nil
}

func (m *mockVerificationRepo) ConsumeAccessCode(ctx context.Context, code, usedBy string) error {
	if m.accessErr != nil {
		return m.accessErr
	}
	m.burnedAccess = append(m.burnedAccess, code)
	return nil
}

type mockMailDispatcher struct {
	sent []string
}

func (m *mockMailDispatcher) Enqueue(to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

func testJWTConfig() JWTConfig {
	return JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "teshub"}
}

func TestAuthServiceRegisterStudent(t *testing.T) {
	users := newMockUserRepo()
	codes := &mockVerificationRepo{}
	svc := NewAuthService(users, codes, &mockMailDispatcher{}, nil, testJWTConfig())

	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula: "A01234567",
		FirstName: "Ana",
		LastName:  "Lopez",
		Email:     "ana@uni.mx",
		Password:  "Secreta123!",
		Role:      models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.Empty(t, codes.burnedAccess)
	assert.NotEqual(t, "Secreta123!", user.PasswordHash)
}

func TestAuthServiceRegisterAdvisorBurnsCode(t *testing.T) {
	users := newMockUserRepo()
	codes := &mockVerificationRepo{}
	svc := NewAuthService(users, codes, &mockMailDispatcher{}, nil, testJWTConfig())

	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula:  "A0ADVISOR",
		FirstName:  "Sofia",
		LastName:   "Rios",
		Email:      "sofia@uni.mx",
		Password:   "Secreta123!",
		Role:       models.RoleAdvisor,
		AccessCode: "ASESOR-2025",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.Equal(t, []string{"ASESOR-2025"}, codes.burnedAccess)
}

func TestAuthServiceRegisterLegacyMatriculaIsAdmin(t *testing.T) {
	users := newMockUserRepo()
	svc := NewAuthService(users, &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula: "AD001",
		FirstName: "Marta",
		LastName:  "Vega",
		Email:     "marta@uni.mx",
		Password:  "Secreta123!",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, models.StatusActive, user.Status)
}

func TestAuthServiceRegisterWeakPassword(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	weak := []string{"abc", "secreta123", "SECRETA123!", "Secreta!", "Ab1"}
	for _, password := range weak {
		_, err := svc.Register(context.Background(), dto.RegisterRequest{
			Matricula: "A01234567",
			FirstName: "Ana",
			LastName:  "Lopez",
			Email:     "ana@uni.mx",
			Password:  password,
		})
		require.Error(t, err, password)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, password)
	}
}

func TestAuthServiceRegisterAdvisorInvalidCode(t *testing.T) {
	users := newMockUserRepo()
	codes := &mockVerificationRepo{accessInvalid: true}
	svc := NewAuthService(users, codes, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula:  "A0ADVISOR",
		FirstName:  "Sofia",
		LastName:   "Rios",
		Email:      "sofia@uni.mx",
		Password:   "Secreta123!",
		Role:       models.RoleAdvisor,
		AccessCode: "EXPIRED",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, users.created)
	assert.Empty(t, codes.burnedAccess)
}

func TestAuthServiceRegisterAdvisorMissingCode(t *testing.T) {
	users := newMockUserRepo()
	svc := NewAuthService(users, &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula: "A0ADVISOR",
		FirstName: "Sofia",
		LastName:  "Rios",
		Email:     "sofia@uni.mx",
		Password:  "Secreta123!",
		Role:      models.RoleAdvisor,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.created)
}

func TestAuthServiceRegisterDuplicateKeepsAccessCode(t *testing.T) {
	users := newMockUserRepo()
	users.createErr = &pq.Error{Code: "23505"}
	codes := &mockVerificationRepo{}
	svc := NewAuthService(users, codes, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula:  "A0ADVISOR",
		FirstName:  "Sofia",
		LastName:   "Rios",
		Email:      "sofia@uni.mx",
		Password:   "Secreta123!",
		Role:       models.RoleAdvisor,
		AccessCode: "ASESOR-2025",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
	assert.Empty(t, codes.burnedAccess)
}

func TestAuthServiceRegisterRejectsAdminRole(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Matricula: "A0ROOT",
		FirstName: "Root",
		LastName:  "Admin",
		Email:     "root@uni.mx",
		Password:  "Secreta123!",
		Role:      models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func activeUser(matricula, password string, role models.Role, status models.AccountStatus) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		Matricula:    matricula,
		FirstName:    "Ana",
		LastName:     "Lopez",
		Email:        matricula + "@uni.mx",
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
	}
}

func TestAuthServiceLoginIssuesToken(t *testing.T) {
	user := activeUser("A01234567", "Secreta123!", models.RoleStudent, models.StatusActive)
	svc := NewAuthService(newMockUserRepo(user), &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "A01234567@uni.mx", Password: "Secreta123!"})
	require.NoError(t, err)
	assert.Equal(t, "A01234567", resp.Matricula)
	assert.Equal(t, models.RoleStudent, resp.Role)

	parsed, err := jwt.ParseWithClaims(resp.Token, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(*models.JWTClaims)
	require.True(t, ok)
	assert.Equal(t, "A01234567", claims.Matricula)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	user := activeUser("A01234567", "Secreta123!", models.RoleStudent, models.StatusActive)
	svc := NewAuthService(newMockUserRepo(user), &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "A01234567@uni.mx", Password: "Incorrecta9?"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginPendingAdvisor(t *testing.T) {
	user := activeUser("A0ADVISOR", "Secreta123!", models.RoleAdvisor, models.StatusPendingApproval)
	svc := NewAuthService(newMockUserRepo(user), &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "A0ADVISOR@uni.mx", Password: "Secreta123!"})
	require.ErrorIs(t, err, appErrors.ErrPendingApproval)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser("A01234567", "Secreta123!", models.RoleStudent, models.StatusInactive)
	svc := NewAuthService(newMockUserRepo(user), &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "A01234567@uni.mx", Password: "Secreta123!"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRecoverMailsCode(t *testing.T) {
	user := activeUser("A01234567", "Secreta123!", models.RoleStudent, models.StatusActive)
	codes := &mockVerificationRepo{}
	mail := &mockMailDispatcher{}
	svc := NewAuthService(newMockUserRepo(user), codes, mail, nil, testJWTConfig())

	require.NoError(t, svc.Recover(context.Background(), dto.RecoverRequest{Email: user.Email}))
	require.Len(t, codes.createdCodes, 1)
	assert.Len(t, codes.createdCodes[0].Code, 6)
	assert.WithinDuration(t, time.Now().Add(time.Hour), codes.createdCodes[0].ExpiresAt, time.Minute)
	assert.Equal(t, []string{user.Email}, mail.sent)
}

func TestAuthServiceResetPasswordInvalidCode(t *testing.T) {
	codes := &mockVerificationRepo{consumeErr: sql.ErrNoRows}
	svc := NewAuthService(newMockUserRepo(), codes, &mockMailDispatcher{}, nil, testJWTConfig())

	err := svc.ResetPassword(context.Background(), dto.ResetPasswordRequest{
		Email:       "ana@uni.mx",
		Code:        "000000",
		NewPassword: "Nueva1234!",
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidCode)
}

func TestAuthServiceChangePasswordChecksCurrent(t *testing.T) {
	user := activeUser("A01234567", "Secreta123!", models.RoleStudent, models.StatusActive)
	users := newMockUserRepo(user)
	svc := NewAuthService(users, &mockVerificationRepo{}, &mockMailDispatcher{}, nil, testJWTConfig())

	err := svc.ChangePassword(context.Background(), "A01234567", dto.ChangePasswordRequest{
		CurrentPassword: "Incorrecta9?",
		NewPassword:     "Nueva1234!",
	})
	require.Error(t, err)
	assert.Empty(t, users.passwordSet)

	err = svc.ChangePassword(context.Background(), "A01234567", dto.ChangePasswordRequest{
		CurrentPassword: "Secreta123!",
		NewPassword:     "Nueva1234!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, users.passwordSet)
}
