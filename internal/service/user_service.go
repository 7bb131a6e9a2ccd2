package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type userRepository interface {
	GetByMatricula(ctx context.Context, matricula string) (*models.User, error)
	UpdateProfile(ctx context.Context, matricula string, req dto.UpdateProfileRequest) (int, error)
	UpdateAvatar(ctx context.Context, matricula, path string) error
	UpdateEmail(ctx context.Context, matricula, email string) error
	SetStatus(ctx context.Context, matricula string, status models.AccountStatus) error
	Deactivate(ctx context.Context, matricula string, role models.Role) error
	ListPendingAdvisors(ctx context.Context) ([]models.User, error)
	NetworkStats(ctx context.Context, matricula string) (models.NetworkStats, error)
	PublicationHighlights(ctx context.Context, matricula string) (models.PublicationHighlights, error)
}

type interestRepository interface {
	ListAll(ctx context.Context) ([]models.Interest, error)
	ListForUser(ctx context.Context, matricula string) ([]models.Interest, error)
	Replace(ctx context.Context, matricula string, interestIDs []int) error
}

type followChecker interface {
	IsFollowing(ctx context.Context, follower, followed string) (bool, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

type emailCodeConsumer interface {
	ConsumeCode(ctx context.Context, email, code string, now time.Time) error
}

// UserService implements profile management and admin account actions.
type UserService struct {
	users     userRepository
	interests interestRepository
	follows   followChecker
	codes     emailCodeConsumer
	storage   fileStore
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users userRepository, interests interestRepository, follows followChecker, codes emailCodeConsumer, storage fileStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, interests: interests, follows: follows, codes: codes, storage: storage, logger: logger}
}

// Profile assembles the public profile page for a viewer.
func (s *UserService) Profile(ctx context.Context, matricula, viewer string) (*dto.ProfileResponse, error) {
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch profile")
	}
	if user.Status == models.StatusInactive {
		return nil, appErrors.ErrNotFound
	}

	stats, err := s.users.NetworkStats(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch network stats")
	}
	highlights, err := s.users.PublicationHighlights(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publication highlights")
	}
	interests, err := s.interests.ListForUser(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch interests")
	}

	following := false
	if viewer != "" && viewer != matricula {
		if following, err = s.follows.IsFollowing(ctx, viewer, matricula); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check follow state")
		}
	}

	return &dto.ProfileResponse{
		User:                *user,
		Stats:               stats,
		TotalPublications:   highlights.Total,
		FeaturedPublication: highlights.Featured,
		Interests:           interests,
		IsFollowing:         following,
	}, nil
}

// UpdateProfile applies a partial profile edit.
func (s *UserService) UpdateProfile(ctx context.Context, matricula string, req dto.UpdateProfileRequest) error {
	updated, err := s.users.UpdateProfile(ctx, matricula, req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	if updated == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no hay campos para actualizar")
	}
	return nil
}

// UpdateAvatar stores the new image and removes the replaced one.
func (s *UserService) UpdateAvatar(ctx context.Context, matricula, filename string, data []byte) (string, error) {
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	path, err := s.storage.Save(filename, data)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}
	if err := s.users.UpdateAvatar(ctx, matricula, path); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update avatar")
	}

	if user.AvatarPath != nil {
		if err := s.storage.Delete(*user.AvatarPath); err != nil {
			s.logger.Warn("failed to delete replaced avatar", zap.Error(err))
		}
	}
	return path, nil
}

// UpdateEmail switches the account email after validating the mailed code.
func (s *UserService) UpdateEmail(ctx context.Context, matricula string, req dto.UpdateEmailRequest) error {
	if err := s.codes.ConsumeCode(ctx, req.NewEmail, req.Code, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrInvalidCode
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume code")
	}
	if err := s.users.UpdateEmail(ctx, matricula, req.NewEmail); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update email")
	}
	return nil
}

// Deactivate soft deletes an account. Advisors leave their active pairings
// closed and students leave no pending requests behind.
func (s *UserService) Deactivate(ctx context.Context, matricula string) error {
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := s.users.Deactivate(ctx, matricula, user.Role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate account")
	}
	s.logger.Info("account deactivated", zap.String("matricula", matricula))
	return nil
}

// PendingAdvisors lists advisor accounts awaiting approval.
func (s *UserService) PendingAdvisors(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListPendingAdvisors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending advisors")
	}
	return users, nil
}

// ApproveAdvisor activates a pending advisor account.
func (s *UserService) ApproveAdvisor(ctx context.Context, matricula string) error {
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.Role != models.RoleAdvisor || user.Status != models.StatusPendingApproval {
		return appErrors.Clone(appErrors.ErrValidation, "la cuenta no está pendiente de aprobación")
	}
	if err := s.users.SetStatus(ctx, matricula, models.StatusActive); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve advisor")
	}
	s.logger.Info("advisor approved", zap.String("matricula", matricula))
	return nil
}

// Interests returns the selectable catalog.
func (s *UserService) Interests(ctx context.Context) ([]models.Interest, error) {
	interests, err := s.interests.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list interests")
	}
	return interests, nil
}

// ReplaceInterests overwrites the caller's interest selection.
func (s *UserService) ReplaceInterests(ctx context.Context, matricula string, interestIDs []int) error {
	if err := s.interests.Replace(ctx, matricula, interestIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace interests")
	}
	return nil
}
