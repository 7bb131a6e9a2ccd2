package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/teshub/teshub-api/internal/models"
)

func newSearchRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTermConditionsBindsEachTermOnce(t *testing.T) {
	args := []interface{}{"seed"}
	clause := termConditions([]string{"redes", "neuronales"}, []string{"p.title", "p.description"}, &args)

	require.Equal(t, []interface{}{"seed", "%redes%", "%neuronales%"}, args)
	require.Equal(t, "((p.title ILIKE $2 OR p.description ILIKE $2) OR (p.title ILIKE $3 OR p.description ILIKE $3))", clause)
}

func TestSearchRepositoryProfilesMatchesAnyTerm(t *testing.T) {
	db, mock, cleanup := newSearchRepoMock(t)
	defer cleanup()

	repo := NewSearchRepository(db)
	rows := sqlmock.NewRows([]string{"matricula", "first_name", "last_name", "avatar_path", "major", "role", "interests", "is_following"}).
		AddRow("A0OTHER", "Luis", "Mora", nil, "Sistemas", int(models.RoleStudent), "Redes, IA", false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WithArgs(models.StatusActive, "A0ME", "%luis%", "%mora%", searchLimit).
		WillReturnRows(rows)

	hits, err := repo.Profiles(context.Background(), []string{"luis", "mora"}, "A0ME")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "Redes, IA", hits[0].Interests)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepositoryPublicationsApprovedOnly(t *testing.T) {
	db, mock, cleanup := newSearchRepoMock(t)
	defer cleanup()

	repo := NewSearchRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "description", "cover_path", "published_at", "rating", "authors", "tags"}).
		AddRow(1, "Tesis de redes", "Resumen", nil, time.Now(), "4.5", "Ana Lopez", "redes")
	mock.ExpectQuery(regexp.QuoteMeta("FROM publications p")).
		WithArgs(models.ModerationApproved, "%redes%", searchLimit).
		WillReturnRows(rows)

	hits, err := repo.Publications(context.Background(), []string{"redes"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "4.5", hits[0].Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepositoryEventsCarriesViewerFlag(t *testing.T) {
	db, mock, cleanup := newSearchRepoMock(t)
	defer cleanup()

	repo := NewSearchRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "venue_name", "latitude", "longitude", "capacity", "cover_path", "starts_at", "created_at", "registered", "attending"}).
		AddRow(3, "Taller de redes", "Intro", "academico", "Aula 3", nil, nil, 30, nil, time.Now(), time.Now(), 12, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events e")).
		WithArgs("A0ME", "%taller%", searchLimit).
		WillReturnRows(rows)

	hits, err := repo.Events(context.Background(), []string{"taller"}, "A0ME")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.True(t, hits[0].Attending)
	require.Equal(t, 12, hits[0].Registered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepositorySuggestionsExcludesFollowed(t *testing.T) {
	db, mock, cleanup := newSearchRepoMock(t)
	defer cleanup()

	repo := NewSearchRepository(db)
	rows := sqlmock.NewRows([]string{"matricula", "first_name", "last_name", "avatar_path", "major", "shared"}).
		AddRow("A0OTHER", "Luis", "Mora", nil, "Sistemas", 4)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_interests mine")).
		WithArgs("A0ME", models.StatusActive).
		WillReturnRows(rows)

	items, err := repo.Suggestions(context.Background(), "A0ME")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 4, items[0].Shared)
	require.NoError(t, mock.ExpectationsWereMet())
}
