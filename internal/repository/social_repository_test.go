package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newSocialRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSocialRepositoryToggleFollows(t *testing.T) {
	db, mock, cleanup := newSocialRepoMock(t)
	defer cleanup()

	repo := NewSocialRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM follows")).
		WithArgs("A0ME", "A0OTHER").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO follows")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	following, err := repo.Toggle(context.Background(), "A0ME", "A0OTHER")
	require.NoError(t, err)
	require.True(t, following)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryToggleUnfollows(t *testing.T) {
	db, mock, cleanup := newSocialRepoMock(t)
	defer cleanup()

	repo := NewSocialRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM follows")).
		WithArgs("A0ME", "A0OTHER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	following, err := repo.Toggle(context.Background(), "A0ME", "A0OTHER")
	require.NoError(t, err)
	require.False(t, following)
	require.NoError(t, mock.ExpectationsWereMet())
}
