package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	"github.com/teshub/teshub-api/internal/repository"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type authUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByMatricula(ctx context.Context, matricula string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, matricula, hash string) error
	UpdatePasswordByEmail(ctx context.Context, email, hash string) error
}

type verificationRepository interface {
	CreateCode(ctx context.Context, code *models.VerificationCode) error
	ConsumeCode(ctx context.Context, email, code string, now time.Time) error
	AccessCodeValid(ctx context.Context, code string) (bool, error)
	ConsumeAccessCode(ctx context.Context, code, usedBy string) error
}

type mailDispatcher interface {
	Enqueue(to, subject, body string) error
}

// JWTConfig carries token signing parameters.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

const (
	resetCodeTTL = time.Hour
	emailCodeTTL = 10 * time.Minute
)

// AuthService implements registration, login and account recovery.
type AuthService struct {
	users  authUserRepository
	codes  verificationRepository
	mail   mailDispatcher
	logger *zap.Logger
	jwt    JWTConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, codes verificationRepository, mail mailDispatcher, logger *zap.Logger, jwtCfg JWTConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, codes: codes, mail: mail, logger: logger, jwt: jwtCfg}
}

// Register creates an account. Students become active immediately; advisors
// must present a valid invitation code. Legacy five character matriculas
// belong to staff and register as administrators.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	role := req.Role
	if role == 0 {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleAdvisor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rol inválido")
	}
	if len(req.Matricula) == 5 {
		role = models.RoleAdmin
	}

	if role == models.RoleAdvisor {
		if req.AccessCode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "se requiere un código de invitación para registrarse como asesor")
		}
		valid, err := s.codes.AccessCodeValid(ctx, req.AccessCode)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check access code")
		}
		if !valid {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "código de invitación inválido o ya utilizado")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Matricula:    req.Matricula,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.StatusActive,
		Major:        req.Major,
		Semester:     req.Semester,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "la matrícula o el correo ya están registrados")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	// The code burns only once the account row exists, so a rejected
	// registration does not spend it.
	if role == models.RoleAdvisor {
		if err := s.codes.ConsumeAccessCode(ctx, req.AccessCode, req.Matricula); err != nil {
			s.logger.Warn("access code consumed concurrently",
				zap.String("matricula", req.Matricula),
				zap.Error(err))
		}
	}

	s.logger.Info("user registered",
		zap.String("matricula", user.Matricula),
		zap.Int("role", int(user.Role)))
	return user, nil
}

// Login authenticates by email and password and issues a signed token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	switch user.Status {
	case models.StatusInactive:
		return nil, appErrors.ErrInvalidCredentials
	case models.StatusPendingApproval:
		return nil, appErrors.ErrPendingApproval
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	return &dto.LoginResponse{
		Token:     token,
		Matricula: user.Matricula,
		Name:      user.FullName(),
		Role:      user.Role,
	}, nil
}

// Recover mails a six digit reset code valid for one hour.
func (s *AuthService) Recover(ctx context.Context, req dto.RecoverRequest) error {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "el correo no está registrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	if err := s.codes.CreateCode(ctx, &models.VerificationCode{
		Email:     user.Email,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(resetCodeTTL),
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	body := fmt.Sprintf("Hola %s,\n\nTu código para restablecer la contraseña es: %s\n\nEl código expira en una hora.", user.FirstName, code)
	if err := s.mail.Enqueue(user.Email, "Recuperación de contraseña", body); err != nil {
		s.logger.Warn("failed to enqueue recovery mail", zap.Error(err))
	}
	return nil
}

// ResetPassword completes the recovery flow with the mailed code.
func (s *AuthService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.codes.ConsumeCode(ctx, req.Email, req.Code, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrInvalidCode
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePasswordByEmail(ctx, req.Email, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

// ChangePassword updates the password of an authenticated user after
// verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, matricula string, req dto.ChangePasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "la contraseña actual es incorrecta")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, matricula, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

// RequestEmailCode mails a short-lived code to the address the user wants
// to switch to.
func (s *AuthService) RequestEmailCode(ctx context.Context, req dto.RequestEmailCodeRequest) error {
	if _, err := s.users.GetByEmail(ctx, req.NewEmail); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicate, "el correo ya está registrado")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	if err := s.codes.CreateCode(ctx, &models.VerificationCode{
		Email:     req.NewEmail,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(emailCodeTTL),
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	body := fmt.Sprintf("Tu código de verificación es: %s\n\nEl código expira en diez minutos.", code)
	if err := s.mail.Enqueue(req.NewEmail, "Verificación de correo", body); err != nil {
		s.logger.Warn("failed to enqueue verification mail", zap.Error(err))
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwt.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		Matricula: user.Matricula,
		Role:      user.Role,
		Name:      user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Matricula,
			Issuer:    s.jwt.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwt.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwt.Secret))
}

// validatePassword enforces the password composition policy: at least four
// characters with an uppercase letter, a lowercase letter, a digit and a
// symbol.
func validatePassword(password string) error {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if len([]rune(password)) < 4 || !upper || !lower || !digit || !symbol {
		return appErrors.Clone(appErrors.ErrValidation,
			"la contraseña debe tener al menos 4 caracteres e incluir mayúscula, minúscula, número y símbolo")
	}
	return nil
}

// generateNumericCode builds a zero-padded random digit string.
func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
