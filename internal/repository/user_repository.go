package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
)

const userColumns = `matricula, first_name, last_name, email, password_hash, role, status,
       avatar_path, major, semester, bio, location, created_at`

// UserRepository handles account persistence.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users
	(matricula, first_name, last_name, email, password_hash, role, status, avatar_path, major, semester, bio, location, created_at)
	VALUES (:matricula, :first_name, :last_name, :email, :password_hash, :role, :status, :avatar_path, :major, :semester, :bio, :location, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByMatricula fetches one account regardless of status.
func (r *UserRepository) GetByMatricula(ctx context.Context, matricula string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE matricula = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, matricula); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail fetches one account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the non-nil fields of the request to the account.
// Returns the number of columns updated so callers can skip empty edits.
func (r *UserRepository) UpdateProfile(ctx context.Context, matricula string, req dto.UpdateProfileRequest) (int, error) {
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)

	if req.FirstName != nil {
		args = append(args, *req.FirstName)
		sets = append(sets, fmt.Sprintf("first_name = $%d", len(args)))
	}
	if req.LastName != nil {
		args = append(args, *req.LastName)
		sets = append(sets, fmt.Sprintf("last_name = $%d", len(args)))
	}
	if req.Major != nil {
		args = append(args, *req.Major)
		sets = append(sets, fmt.Sprintf("major = $%d", len(args)))
	}
	if req.Semester != nil {
		args = append(args, *req.Semester)
		sets = append(sets, fmt.Sprintf("semester = $%d", len(args)))
	}
	if req.Bio != nil {
		args = append(args, *req.Bio)
		sets = append(sets, fmt.Sprintf("bio = $%d", len(args)))
	}
	if req.Location != nil {
		args = append(args, *req.Location)
		sets = append(sets, fmt.Sprintf("location = $%d", len(args)))
	}
	if len(sets) == 0 {
		return 0, nil
	}

	args = append(args, matricula)
	query := fmt.Sprintf("UPDATE users SET %s WHERE matricula = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("update profile: %w", err)
	}
	return len(sets), nil
}

// UpdateAvatar swaps the stored avatar path.
func (r *UserRepository) UpdateAvatar(ctx context.Context, matricula, path string) error {
	const query = `UPDATE users SET avatar_path = $2 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, path); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, matricula, hash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdatePasswordByEmail stores a new hash located by email, used by the
// recovery flow.
func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, hash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE email = $1`
	if _, err := r.db.ExecContext(ctx, query, email, hash); err != nil {
		return fmt.Errorf("update password by email: %w", err)
	}
	return nil
}

// UpdateEmail changes the account email.
func (r *UserRepository) UpdateEmail(ctx context.Context, matricula, email string) error {
	const query = `UPDATE users SET email = $2 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, email); err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	return nil
}

// SetStatus overwrites the account status.
func (r *UserRepository) SetStatus(ctx context.Context, matricula string, status models.AccountStatus) error {
	const query = `UPDATE users SET status = $2 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, status); err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	return nil
}

// Deactivate soft deletes an account and unwinds its advisory side in one
// transaction. Advisors leave their active pairings closed, students leave
// no dangling pending requests.
func (r *UserRepository) Deactivate(ctx context.Context, matricula string, role models.Role) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deactivate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE users SET status = $2 WHERE matricula = $1`, matricula, models.StatusInactive); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	switch role {
	case models.RoleAdvisor:
		const closeQuery = `UPDATE advisories SET status = $2 WHERE advisor_matricula = $1 AND status = $3`
		if _, err = tx.ExecContext(ctx, closeQuery, matricula, models.AdvisoryClosed, models.AdvisoryActive); err != nil {
			return fmt.Errorf("close advisories for %s: %w", matricula, err)
		}
	case models.RoleStudent:
		const dropQuery = `DELETE FROM advisories WHERE student_matricula = $1 AND status = $2`
		if _, err = tx.ExecContext(ctx, dropQuery, matricula, models.AdvisoryPending); err != nil {
			return fmt.Errorf("drop pending requests for %s: %w", matricula, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit deactivate: %w", err)
	}
	return nil
}

// ExistingMatriculas filters the given list down to the matriculas that have
// an account row. Callers diff the result to report the missing ones.
func (r *UserRepository) ExistingMatriculas(ctx context.Context, matriculas []string) ([]string, error) {
	if len(matriculas) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT matricula FROM users WHERE matricula IN (?)`, matriculas)
	if err != nil {
		return nil, fmt.Errorf("build matricula lookup: %w", err)
	}
	query = r.db.Rebind(query)
	found := make([]string, 0, len(matriculas))
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("lookup matriculas: %w", err)
	}
	return found, nil
}

// ListPendingAdvisors returns advisor accounts awaiting admin approval.
func (r *UserRepository) ListPendingAdvisors(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	WHERE role = $1 AND status = $2 ORDER BY created_at ASC`
	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, models.RoleAdvisor, models.StatusPendingApproval); err != nil {
		return nil, fmt.Errorf("list pending advisors: %w", err)
	}
	return users, nil
}

// NetworkStats counts followers and followings for a profile.
func (r *UserRepository) NetworkStats(ctx context.Context, matricula string) (models.NetworkStats, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM follows WHERE followed_matricula = $1) AS followers,
	(SELECT COUNT(*) FROM follows WHERE follower_matricula = $1) AS following`
	var stats models.NetworkStats
	if err := r.db.GetContext(ctx, &stats, query, matricula); err != nil {
		return stats, fmt.Errorf("network stats: %w", err)
	}
	return stats, nil
}

// PublicationHighlights returns how many publications the user authored and
// the title of their best rated approved work, if any.
func (r *UserRepository) PublicationHighlights(ctx context.Context, matricula string) (models.PublicationHighlights, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM publication_members WHERE matricula = $1) AS total,
	(SELECT p.title FROM publications p
		JOIN publication_members m ON m.publication_id = p.id
		WHERE m.matricula = $1 AND p.status = $2
		ORDER BY (SELECT COALESCE(AVG(r.score), 0) FROM ratings r WHERE r.publication_id = p.id) DESC, p.created_at DESC
		LIMIT 1) AS featured`
	var highlights models.PublicationHighlights
	if err := r.db.GetContext(ctx, &highlights, query, matricula, models.ModerationApproved); err != nil {
		return highlights, fmt.Errorf("publication highlights: %w", err)
	}
	return highlights, nil
}
