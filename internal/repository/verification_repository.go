package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/models"
)

// VerificationRepository stores short-lived email verification codes and
// the single-use advisor access codes.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// CreateCode stores a fresh verification code, invalidating any previous
// unused codes for the same address.
func (r *VerificationRepository) CreateCode(ctx context.Context, code *models.VerificationCode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create code: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE verification_codes SET used = TRUE WHERE email = $1 AND used = FALSE`, code.Email); err != nil {
		return fmt.Errorf("invalidate previous codes: %w", err)
	}
	const insert = `INSERT INTO verification_codes (email, code, expires_at, used, created_at)
	VALUES ($1, $2, $3, FALSE, $4)`
	if _, err = tx.ExecContext(ctx, insert, code.Email, code.Code, code.ExpiresAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create code: %w", err)
	}
	return nil
}

// ConsumeCode marks a matching, unexpired code as used. sql.ErrNoRows means
// the code is wrong, expired or already spent.
func (r *VerificationRepository) ConsumeCode(ctx context.Context, email, code string, now time.Time) error {
	const query = `UPDATE verification_codes SET used = TRUE
	WHERE email = $1 AND code = $2 AND used = FALSE AND expires_at > $3`
	res, err := r.db.ExecContext(ctx, query, email, code, now)
	if err != nil {
		return fmt.Errorf("consume verification code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check consumed code rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AccessCodeValid reports whether an advisor access code exists and has not
// been claimed yet. It does not burn the code.
func (r *VerificationRepository) AccessCodeValid(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM access_codes WHERE code = $1 AND used = FALSE)`
	var valid bool
	if err := r.db.GetContext(ctx, &valid, query, code); err != nil {
		return false, fmt.Errorf("check access code: %w", err)
	}
	return valid, nil
}

// ConsumeAccessCode burns an unused advisor access code. sql.ErrNoRows
// means the code does not exist or was already claimed.
func (r *VerificationRepository) ConsumeAccessCode(ctx context.Context, code, usedBy string) error {
	const query = `UPDATE access_codes SET used = TRUE, used_by = $2
	WHERE code = $1 AND used = FALSE`
	res, err := r.db.ExecContext(ctx, query, code, usedBy)
	if err != nil {
		return fmt.Errorf("consume access code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check access code rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
