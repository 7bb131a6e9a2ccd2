package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/teshub/teshub-api/internal/models"
)

func newVerificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestVerificationRepositoryCreateCodeInvalidatesPrevious(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE verification_codes SET used = TRUE WHERE email = $1 AND used = FALSE")).
		WithArgs("ana@uni.mx").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verification_codes")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateCode(context.Background(), &models.VerificationCode{
		Email:     "ana@uni.mx",
		Code:      "483920",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryConsumeCodeExpired(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE verification_codes SET used = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeCode(context.Background(), "ana@uni.mx", "483920", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryAccessCodeValid(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM access_codes WHERE code = $1 AND used = FALSE)")).
		WithArgs("ASESOR-2025").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	valid, err := repo.AccessCodeValid(context.Background(), "ASESOR-2025")
	require.NoError(t, err)
	require.True(t, valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryConsumeAccessCode(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE access_codes SET used = TRUE, used_by = $2")).
		WithArgs("ASESOR-2025", "A0ADVISOR").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ConsumeAccessCode(context.Background(), "ASESOR-2025", "A0ADVISOR"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryConsumeAccessCodeBurned(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE access_codes SET used = TRUE, used_by = $2")).
		WithArgs("ASESOR-2025", "A0ADVISOR").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeAccessCode(context.Background(), "ASESOR-2025", "A0ADVISOR")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
