package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestUserRepositoryUpdateProfileAccumulatesColumns(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET first_name = $1, bio = $2 WHERE matricula = $3")).
		WithArgs("Ana", "Me gusta la robótica", "A0STUDENT").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name := "Ana"
	bio := "Me gusta la robótica"
	updated, err := repo.UpdateProfile(context.Background(), "A0STUDENT", dto.UpdateProfileRequest{
		FirstName: &name,
		Bio:       &bio,
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateProfileEmptyRequest(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	updated, err := repo.UpdateProfile(context.Background(), "A0STUDENT", dto.UpdateProfileRequest{})
	require.NoError(t, err)
	require.Zero(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeactivateAdvisorClosesAdvisories(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status = $2 WHERE matricula = $1")).
		WithArgs("A0ADVISOR", models.StatusInactive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE advisories SET status = $2 WHERE advisor_matricula = $1 AND status = $3")).
		WithArgs("A0ADVISOR", models.AdvisoryClosed, models.AdvisoryActive).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Deactivate(context.Background(), "A0ADVISOR", models.RoleAdvisor))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeactivateStudentDropsPendingRequests(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status = $2 WHERE matricula = $1")).
		WithArgs("A0STUDENT", models.StatusInactive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM advisories WHERE student_matricula = $1 AND status = $2")).
		WithArgs("A0STUDENT", models.AdvisoryPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Deactivate(context.Background(), "A0STUDENT", models.RoleStudent))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistingMatriculas(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"matricula"}).AddRow("A0KNOWN")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT matricula FROM users WHERE matricula IN ($1, $2)")).
		WithArgs("A0KNOWN", "A0GHOST").
		WillReturnRows(rows)

	found, err := repo.ExistingMatriculas(context.Background(), []string{"A0KNOWN", "A0GHOST"})
	require.NoError(t, err)
	require.Equal(t, []string{"A0KNOWN"}, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryNetworkStats(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"followers", "following"}).AddRow(12, 7)
	mock.ExpectQuery(regexp.QuoteMeta("FROM follows WHERE followed_matricula")).
		WithArgs("A0STUDENT").
		WillReturnRows(rows)

	stats, err := repo.NetworkStats(context.Background(), "A0STUDENT")
	require.NoError(t, err)
	require.Equal(t, 12, stats.Followers)
	require.Equal(t, 7, stats.Following)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryPublicationHighlights(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"total", "featured"}).AddRow(4, "Redes neuronales en el aula")
	mock.ExpectQuery(regexp.QuoteMeta("FROM publication_members WHERE matricula = $1")).
		WithArgs("A0STUDENT", models.ModerationApproved).
		WillReturnRows(rows)

	highlights, err := repo.PublicationHighlights(context.Background(), "A0STUDENT")
	require.NoError(t, err)
	require.Equal(t, 4, highlights.Total)
	require.NotNil(t, highlights.Featured)
	require.Equal(t, "Redes neuronales en el aula", *highlights.Featured)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListPendingAdvisors(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"matricula", "first_name", "last_name", "email", "password_hash", "role", "status", "avatar_path", "major", "semester", "bio", "location", "created_at"}).
		AddRow("A0ADVISOR", "Sofia", "Rios", "sofia@uni.mx", "hash", models.RoleAdvisor, models.StatusPendingApproval, nil, nil, nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(models.RoleAdvisor, models.StatusPendingApproval).
		WillReturnRows(rows)

	users, err := repo.ListPendingAdvisors(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, models.StatusPendingApproval, users[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
