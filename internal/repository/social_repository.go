package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
)

// SocialRepository persists the follow graph.
type SocialRepository struct {
	db *sqlx.DB
}

// NewSocialRepository constructs the repository.
func NewSocialRepository(db *sqlx.DB) *SocialRepository {
	return &SocialRepository{db: db}
}

// Toggle follows the target if not followed and unfollows otherwise.
// Returns true when the caller now follows the target.
func (r *SocialRepository) Toggle(ctx context.Context, follower, followed string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin follow toggle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM follows WHERE follower_matricula = $1 AND followed_matricula = $2`, follower, followed)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check follow delete rows: %w", err)
	}

	following := false
	if removed == 0 {
		if _, err = tx.ExecContext(ctx, `INSERT INTO follows (follower_matricula, followed_matricula, created_at) VALUES ($1, $2, $3)`, follower, followed, time.Now().UTC()); err != nil {
			return false, fmt.Errorf("insert follow: %w", err)
		}
		following = true
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit follow toggle: %w", err)
	}
	return following, nil
}

// IsFollowing reports whether follower follows followed.
func (r *SocialRepository) IsFollowing(ctx context.Context, follower, followed string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM follows WHERE follower_matricula = $1 AND followed_matricula = $2`
	if err := r.db.GetContext(ctx, &count, query, follower, followed); err != nil {
		return false, fmt.Errorf("check following: %w", err)
	}
	return count > 0, nil
}

// Followers lists the active profiles following the user.
func (r *SocialRepository) Followers(ctx context.Context, matricula string) ([]dto.ProfileHit, error) {
	const query = `SELECT u.matricula, u.first_name, u.last_name, u.avatar_path, u.major
	FROM follows f
	JOIN users u ON u.matricula = f.follower_matricula
	WHERE f.followed_matricula = $1 AND u.status = $2
	ORDER BY f.created_at DESC`
	profiles := make([]dto.ProfileHit, 0)
	if err := r.db.SelectContext(ctx, &profiles, query, matricula, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return profiles, nil
}

// Following lists the active profiles the user follows.
func (r *SocialRepository) Following(ctx context.Context, matricula string) ([]dto.ProfileHit, error) {
	const query = `SELECT u.matricula, u.first_name, u.last_name, u.avatar_path, u.major
	FROM follows f
	JOIN users u ON u.matricula = f.followed_matricula
	WHERE f.follower_matricula = $1 AND u.status = $2
	ORDER BY f.created_at DESC`
	profiles := make([]dto.ProfileHit, 0)
	if err := r.db.SelectContext(ctx, &profiles, query, matricula, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return profiles, nil
}
