package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type mockInterestRepo struct {
	catalog  []models.Interest
	selected []models.Interest
	replaced []int
}

func (m *mockInterestRepo) ListAll(ctx context.Context) ([]models.Interest, error) {
	return m.catalog, nil
}

func (m *mockInterestRepo) ListForUser(ctx context.Context, matricula string) ([]models.Interest, error) {
	return m.selected, nil
}

func (m *mockInterestRepo) Replace(ctx context.Context, matricula string, interestIDs []int) error {
	m.replaced = interestIDs
	return nil
}

type mockFollowChecker struct {
	following bool
}

func (m *mockFollowChecker) IsFollowing(ctx context.Context, follower, followed string) (bool, error) {
	return m.following, nil
}

type mockCodeConsumer struct {
	err error
}

func (m *mockCodeConsumer) ConsumeCode(ctx context.Context, email, code string, now time.Time) error {
	return m.err
}

func TestUserServiceProfile(t *testing.T) {
	user := activeUser("A0OTHER", "x", models.RoleStudent, models.StatusActive)
	users := newMockUserRepo(user)
	users.stats = models.NetworkStats{Followers: 3, Following: 8}
	featured := "Redes neuronales en el aula"
	users.highlights = models.PublicationHighlights{Total: 4, Featured: &featured}
	interests := &mockInterestRepo{selected: []models.Interest{{ID: 1, Name: "Redes"}}}
	svc := NewUserService(users, interests, &mockFollowChecker{following: true}, &mockCodeConsumer{}, noopStorage{}, nil)

	profile, err := svc.Profile(context.Background(), "A0OTHER", "A0ME")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.Stats.Followers)
	assert.Equal(t, 4, profile.TotalPublications)
	require.NotNil(t, profile.FeaturedPublication)
	assert.Equal(t, featured, *profile.FeaturedPublication)
	assert.True(t, profile.IsFollowing)
	require.Len(t, profile.Interests, 1)
}

func TestUserServiceProfileWithoutPublications(t *testing.T) {
	user := activeUser("A0OTHER", "x", models.RoleStudent, models.StatusActive)
	svc := NewUserService(newMockUserRepo(user), &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	profile, err := svc.Profile(context.Background(), "A0OTHER", "A0ME")
	require.NoError(t, err)
	assert.Zero(t, profile.TotalPublications)
	assert.Nil(t, profile.FeaturedPublication)
}

func TestUserServiceProfileHidesInactive(t *testing.T) {
	user := activeUser("A0OTHER", "x", models.RoleStudent, models.StatusInactive)
	svc := NewUserService(newMockUserRepo(user), &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	_, err := svc.Profile(context.Background(), "A0OTHER", "A0ME")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceUpdateEmailInvalidCode(t *testing.T) {
	user := activeUser("A0ME", "x", models.RoleStudent, models.StatusActive)
	users := newMockUserRepo(user)
	svc := NewUserService(users, &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{err: sql.ErrNoRows}, noopStorage{}, nil)

	err := svc.UpdateEmail(context.Background(), "A0ME", dto.UpdateEmailRequest{NewEmail: "nuevo@uni.mx", Code: "000000"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCode)
	assert.Empty(t, users.emailUpdated)
}

func TestUserServiceUpdateEmail(t *testing.T) {
	user := activeUser("A0ME", "x", models.RoleStudent, models.StatusActive)
	users := newMockUserRepo(user)
	svc := NewUserService(users, &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	require.NoError(t, svc.UpdateEmail(context.Background(), "A0ME", dto.UpdateEmailRequest{NewEmail: "nuevo@uni.mx", Code: "123456"}))
	assert.Equal(t, "nuevo@uni.mx", users.emailUpdated)
}

func TestUserServiceApproveAdvisor(t *testing.T) {
	advisor := activeUser("A0ADVISOR", "x", models.RoleAdvisor, models.StatusPendingApproval)
	users := newMockUserRepo(advisor)
	svc := NewUserService(users, &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	require.NoError(t, svc.ApproveAdvisor(context.Background(), "A0ADVISOR"))
	assert.Equal(t, models.StatusActive, users.statusSet["A0ADVISOR"])
}

func TestUserServiceApproveAdvisorRejectsActive(t *testing.T) {
	advisor := activeUser("A0ADVISOR", "x", models.RoleAdvisor, models.StatusActive)
	svc := NewUserService(newMockUserRepo(advisor), &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	err := svc.ApproveAdvisor(context.Background(), "A0ADVISOR")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeactivatePassesRole(t *testing.T) {
	advisor := activeUser("A0ADVISOR", "x", models.RoleAdvisor, models.StatusActive)
	users := newMockUserRepo(advisor)
	svc := NewUserService(users, &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "A0ADVISOR"))
	assert.Equal(t, []string{"A0ADVISOR"}, users.deactivated)
	assert.Equal(t, models.RoleAdvisor, users.deactivatedRole)
}

func TestUserServiceDeactivateUnknownUser(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), &mockInterestRepo{}, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	err := svc.Deactivate(context.Background(), "A0GHOST")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceReplaceInterests(t *testing.T) {
	interests := &mockInterestRepo{}
	svc := NewUserService(newMockUserRepo(), interests, &mockFollowChecker{}, &mockCodeConsumer{}, noopStorage{}, nil)

	require.NoError(t, svc.ReplaceInterests(context.Background(), "A0ME", []int{1, 4, 7}))
	assert.Equal(t, []int{1, 4, 7}, interests.replaced)
}
