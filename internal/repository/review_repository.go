package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/models"
)

// ReviewRepository persists review verdicts and the pending queue.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Record appends an immutable review entry and overwrites the publication
// status in one transaction.
func (r *ReviewRepository) Record(ctx context.Context, review *models.ReviewRecord) error {
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO reviews (publication_id, advisor_matricula, assigned_status, comments, reviewed_at)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insert, review.PublicationID, review.AdvisorMatricula, review.AssignedStatus, review.Comments, review.ReviewedAt).Scan(&review.ID); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE publications SET status = $2 WHERE id = $1`, review.PublicationID, review.AssignedStatus); err != nil {
		return fmt.Errorf("apply review status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record review: %w", err)
	}
	return nil
}

// PendingQueue lists the advisor's reviewable publications oldest first. A
// publication is queued when it is not approved (NULL, pending, corrections
// or rejected) and one of its authors has an active pairing with the
// advisor.
func (r *ReviewRepository) PendingQueue(ctx context.Context, advisorMatricula string) ([]models.PendingReviewItem, error) {
	const query = `SELECT DISTINCT p.id AS publication_id, p.title, p.description, p.cover_path, p.published_at,
       u.matricula, u.first_name, u.last_name
	FROM publications p
	JOIN publication_members m ON m.publication_id = p.id
	JOIN users u ON u.matricula = m.matricula
	JOIN advisories a ON a.student_matricula = m.matricula
	WHERE a.advisor_matricula = $1 AND a.status = $2
	  AND (p.status IS NULL OR p.status != $3)
	ORDER BY p.published_at ASC`
	items := make([]models.PendingReviewItem, 0)
	if err := r.db.SelectContext(ctx, &items, query, advisorMatricula, models.AdvisoryActive, models.ModerationApproved); err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	return items, nil
}

// History lists every verdict recorded for a publication, newest first,
// with the advisor's name joined in.
func (r *ReviewRepository) History(ctx context.Context, publicationID int) ([]models.ReviewHistoryItem, error) {
	const query = `SELECT r.id, r.publication_id, r.advisor_matricula, r.assigned_status, r.comments, r.reviewed_at,
       u.first_name AS advisor_first_name, u.last_name AS advisor_last_name
	FROM reviews r
	JOIN users u ON u.matricula = r.advisor_matricula
	WHERE r.publication_id = $1
	ORDER BY r.reviewed_at DESC`
	items := make([]models.ReviewHistoryItem, 0)
	if err := r.db.SelectContext(ctx, &items, query, publicationID); err != nil {
		return nil, fmt.Errorf("list review history: %w", err)
	}
	return items, nil
}
