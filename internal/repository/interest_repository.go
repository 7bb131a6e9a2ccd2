package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/models"
)

// InterestRepository persists the interest catalog and user selections.
type InterestRepository struct {
	db *sqlx.DB
}

// NewInterestRepository constructs the repository.
func NewInterestRepository(db *sqlx.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

// ListAll returns the catalog of selectable interests.
func (r *InterestRepository) ListAll(ctx context.Context) ([]models.Interest, error) {
	const query = `SELECT id, name FROM interests ORDER BY name ASC`
	interests := make([]models.Interest, 0)
	if err := r.db.SelectContext(ctx, &interests, query); err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	return interests, nil
}

// ListForUser returns the user's selected interests.
func (r *InterestRepository) ListForUser(ctx context.Context, matricula string) ([]models.Interest, error) {
	const query = `SELECT i.id, i.name
	FROM interests i
	JOIN user_interests ui ON ui.interest_id = i.id
	WHERE ui.matricula = $1
	ORDER BY i.name ASC`
	interests := make([]models.Interest, 0)
	if err := r.db.SelectContext(ctx, &interests, query, matricula); err != nil {
		return nil, fmt.Errorf("list user interests: %w", err)
	}
	return interests, nil
}

// Replace overwrites the user's selection atomically. A failure during the
// bulk insert leaves the previous selection intact.
func (r *InterestRepository) Replace(ctx context.Context, matricula string, interestIDs []int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace interests: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_interests WHERE matricula = $1`, matricula); err != nil {
		return fmt.Errorf("clear user interests: %w", err)
	}
	for _, id := range interestIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO user_interests (matricula, interest_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, matricula, id); err != nil {
			return fmt.Errorf("insert user interest %d: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace interests: %w", err)
	}
	return nil
}
