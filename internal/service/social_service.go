package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type socialRepository interface {
	Toggle(ctx context.Context, follower, followed string) (bool, error)
	Followers(ctx context.Context, matricula string) ([]dto.ProfileHit, error)
	Following(ctx context.Context, matricula string) ([]dto.ProfileHit, error)
}

// SocialService maintains the follow graph.
type SocialService struct {
	social socialRepository
	users  advisoryUserLookup
	logger *zap.Logger
}

// NewSocialService constructs a SocialService instance.
func NewSocialService(social socialRepository, users advisoryUserLookup, logger *zap.Logger) *SocialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocialService{social: social, users: users, logger: logger}
}

// ToggleFollow follows the target when not followed and unfollows
// otherwise. Returns true when the caller now follows the target.
func (s *SocialService) ToggleFollow(ctx context.Context, follower, followed string) (bool, error) {
	if follower == followed {
		return false, appErrors.Clone(appErrors.ErrValidation, "no puedes seguirte a ti mismo")
	}

	target, err := s.users.GetByMatricula(ctx, followed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.ErrNotFound
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch target")
	}
	if target.Status != models.StatusActive {
		return false, appErrors.ErrNotFound
	}

	following, err := s.social.Toggle(ctx, follower, followed)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle follow")
	}
	return following, nil
}

// Followers lists the profiles following the user.
func (s *SocialService) Followers(ctx context.Context, matricula string) ([]dto.ProfileHit, error) {
	profiles, err := s.social.Followers(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list followers")
	}
	return profiles, nil
}

// Following lists the profiles the user follows.
func (s *SocialService) Following(ctx context.Context, matricula string) ([]dto.ProfileHit, error) {
	profiles, err := s.social.Following(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list following")
	}
	return profiles, nil
}
