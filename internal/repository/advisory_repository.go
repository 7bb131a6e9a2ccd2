package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/models"
)

// AdvisoryRepository persists advisor-student pairings.
type AdvisoryRepository struct {
	db *sqlx.DB
}

// NewAdvisoryRepository constructs the repository.
func NewAdvisoryRepository(db *sqlx.DB) *AdvisoryRepository {
	return &AdvisoryRepository{db: db}
}

// ErrAdvisoryExists marks a duplicated request while a pairing with the
// same advisor is still pending or active.
var ErrAdvisoryExists = fmt.Errorf("advisory already exists")

// Request creates a pending pairing unless the student already has a
// pending or active one with this advisor, checked and inserted in one
// transaction. Requests to other advisors are unaffected.
func (r *AdvisoryRepository) Request(ctx context.Context, advisorMatricula, studentMatricula string) (*models.Advisory, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin advisory request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing int
	const check = `SELECT COUNT(*) FROM advisories
	WHERE student_matricula = $1 AND advisor_matricula = $2 AND status IN ($3, $4)`
	if err = tx.GetContext(ctx, &existing, check, studentMatricula, advisorMatricula, models.AdvisoryPending, models.AdvisoryActive); err != nil {
		return nil, fmt.Errorf("check existing advisory: %w", err)
	}
	if existing > 0 {
		err = ErrAdvisoryExists
		return nil, err
	}

	advisory := &models.Advisory{
		AdvisorMatricula: advisorMatricula,
		StudentMatricula: studentMatricula,
		Status:           models.AdvisoryPending,
		RequestedAt:      time.Now().UTC(),
	}
	const insert = `INSERT INTO advisories (advisor_matricula, student_matricula, status, requested_at)
	VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insert, advisory.AdvisorMatricula, advisory.StudentMatricula, advisory.Status, advisory.RequestedAt).Scan(&advisory.ID); err != nil {
		return nil, fmt.Errorf("insert advisory: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit advisory request: %w", err)
	}
	return advisory, nil
}

// GetByID fetches one pairing.
func (r *AdvisoryRepository) GetByID(ctx context.Context, id int) (*models.Advisory, error) {
	const query = `SELECT id, advisor_matricula, student_matricula, status, requested_at
	FROM advisories WHERE id = $1`
	var advisory models.Advisory
	if err := r.db.GetContext(ctx, &advisory, query, id); err != nil {
		return nil, err
	}
	return &advisory, nil
}

// SetStatus moves a pairing between states. sql.ErrNoRows means the row
// was not in the expected source state.
func (r *AdvisoryRepository) SetStatus(ctx context.Context, id int, from, to models.AdvisoryStatus) error {
	const query = `UPDATE advisories SET status = $3 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("set advisory status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check advisory status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const advisoryStudentColumns = `a.id AS advisory_id, a.requested_at,
       u.matricula, u.first_name, u.last_name, u.avatar_path, u.major, u.semester`

// ListStudents returns the advisor's pairings in the given state with the
// student profile joined in, oldest request first.
func (r *AdvisoryRepository) ListStudents(ctx context.Context, advisorMatricula string, status models.AdvisoryStatus) ([]models.AdvisoryStudent, error) {
	query := `SELECT ` + advisoryStudentColumns + `
	FROM advisories a
	JOIN users u ON u.matricula = a.student_matricula
	WHERE a.advisor_matricula = $1 AND a.status = $2 AND u.status = $3
	ORDER BY a.requested_at ASC`
	students := make([]models.AdvisoryStudent, 0)
	if err := r.db.SelectContext(ctx, &students, query, advisorMatricula, status, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list advisory students: %w", err)
	}
	return students, nil
}

// CurrentAdvisor returns the student's pending or active pairing with the
// advisor profile, interests and network counts joined in. Active wins over
// pending when both exist.
func (r *AdvisoryRepository) CurrentAdvisor(ctx context.Context, studentMatricula string) (*models.CurrentAdvisor, error) {
	const query = `SELECT a.id AS advisory_id, a.requested_at, a.status,
       u.matricula, u.first_name, u.last_name, u.email, u.role, u.avatar_path, u.major, u.semester, u.bio, u.location,
       COALESCE((SELECT STRING_AGG(i.name, ', ' ORDER BY i.name)
                 FROM user_interests ui JOIN interests i ON i.id = ui.interest_id
                 WHERE ui.matricula = u.matricula), '') AS interests,
       (SELECT COUNT(*) FROM follows WHERE followed_matricula = u.matricula) AS followers,
       (SELECT COUNT(*) FROM follows WHERE follower_matricula = u.matricula) AS following
	FROM advisories a
	JOIN users u ON u.matricula = a.advisor_matricula
	WHERE a.student_matricula = $1 AND a.status IN ($2, $3)
	ORDER BY a.status DESC
	LIMIT 1`
	var advisor models.CurrentAdvisor
	if err := r.db.GetContext(ctx, &advisor, query, studentMatricula, models.AdvisoryPending, models.AdvisoryActive); err != nil {
		return nil, err
	}
	return &advisor, nil
}

// Supervises reports whether the advisor has an active pairing with any
// author of the publication. This is the permission gate for reviews.
func (r *AdvisoryRepository) Supervises(ctx context.Context, advisorMatricula string, publicationID int) (bool, error) {
	const query = `SELECT COUNT(*)
	FROM publication_members m
	JOIN advisories a ON a.student_matricula = m.matricula
	WHERE m.publication_id = $1 AND a.advisor_matricula = $2 AND a.status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, publicationID, advisorMatricula, models.AdvisoryActive); err != nil {
		return false, fmt.Errorf("check advisory supervision: %w", err)
	}
	return count > 0, nil
}
