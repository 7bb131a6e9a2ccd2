package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/models"
)

// PublicationRepository persists publications and their satellite rows.
type PublicationRepository struct {
	db *sqlx.DB
}

// NewPublicationRepository constructs the repository.
func NewPublicationRepository(db *sqlx.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

// Create inserts a publication together with its members, files and tags in
// one transaction. The owner is always the first member.
func (r *PublicationRepository) Create(ctx context.Context, pub *models.Publication, members []string, files []models.PublicationFile, tags []string) error {
	if pub.PublishedAt.IsZero() {
		pub.PublishedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create publication: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO publications (title, description, status, cover_path, views, downloads, published_at)
	VALUES ($1, $2, $3, $4, 0, 0, $5) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insert, pub.Title, pub.Description, pub.Status, pub.CoverPath, pub.PublishedAt).Scan(&pub.ID); err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}

	for _, matricula := range members {
		if _, err = tx.ExecContext(ctx, `INSERT INTO publication_members (publication_id, matricula) VALUES ($1, $2)`, pub.ID, matricula); err != nil {
			return fmt.Errorf("insert publication member %s: %w", matricula, err)
		}
	}
	for _, file := range files {
		if _, err = tx.ExecContext(ctx, `INSERT INTO publication_files (publication_id, file_name, file_path) VALUES ($1, $2, $3)`, pub.ID, file.FileName, file.FilePath); err != nil {
			return fmt.Errorf("insert publication file %s: %w", file.FileName, err)
		}
	}
	if err = attachTags(ctx, tx, pub.ID, tags); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create publication: %w", err)
	}
	return nil
}

// attachTags upserts tag names and links them to the publication.
func attachTags(ctx context.Context, tx *sqlx.Tx, publicationID int, tags []string) error {
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tagID int
		const upsert = `INSERT INTO tags (name) VALUES ($1)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`
		if err := tx.QueryRowxContext(ctx, upsert, name).Scan(&tagID); err != nil {
			return fmt.Errorf("upsert tag %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO publication_tags (publication_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, publicationID, tagID); err != nil {
			return fmt.Errorf("link tag %s: %w", name, err)
		}
	}
	return nil
}

// GetByID fetches one publication row.
func (r *PublicationRepository) GetByID(ctx context.Context, id int) (*models.Publication, error) {
	const query = `SELECT id, title, description, status, cover_path, views, downloads, published_at
	FROM publications WHERE id = $1`
	var pub models.Publication
	if err := r.db.GetContext(ctx, &pub, query, id); err != nil {
		return nil, err
	}
	return &pub, nil
}

// Update edits a publication the owner is resubmitting. Editing a work in
// "correcciones" or "rechazado" clears its status so it re-enters the
// review queue; approved works keep their verdict.
func (r *PublicationRepository) Update(ctx context.Context, id int, title, description *string, coverPath *string, tags []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update publication: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if title != nil {
		args = append(args, *title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if coverPath != nil {
		args = append(args, *coverPath)
		sets = append(sets, fmt.Sprintf("cover_path = $%d", len(args)))
	}
	sets = append(sets, fmt.Sprintf("status = CASE WHEN status IN ('%s', '%s') THEN '%s' ELSE status END",
		models.ModerationCorrections, models.ModerationRejected, models.ModerationPending))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE publications SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update publication: %w", err)
	}

	if tags != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM publication_tags WHERE publication_id = $1`, id); err != nil {
			return fmt.Errorf("clear publication tags: %w", err)
		}
		if err = attachTags(ctx, tx, id, tags); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update publication: %w", err)
	}
	return nil
}

// Delete removes a publication; satellite rows cascade.
func (r *PublicationRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM publications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check publication delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsMember reports whether the user authored the publication.
func (r *PublicationRepository) IsMember(ctx context.Context, publicationID int, matricula string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM publication_members WHERE publication_id = $1 AND matricula = $2`
	if err := r.db.GetContext(ctx, &count, query, publicationID, matricula); err != nil {
		return false, fmt.Errorf("check publication member: %w", err)
	}
	return count > 0, nil
}

// Members lists the authors with their names.
func (r *PublicationRepository) Members(ctx context.Context, publicationID int) ([]models.PublicationMember, error) {
	const query = `SELECT m.publication_id, m.matricula, u.first_name, u.last_name
	FROM publication_members m
	JOIN users u ON u.matricula = m.matricula
	WHERE m.publication_id = $1`
	members := make([]models.PublicationMember, 0)
	if err := r.db.SelectContext(ctx, &members, query, publicationID); err != nil {
		return nil, fmt.Errorf("list publication members: %w", err)
	}
	return members, nil
}

// Files lists the stored attachments.
func (r *PublicationRepository) Files(ctx context.Context, publicationID int) ([]models.PublicationFile, error) {
	const query = `SELECT id, publication_id, file_name, file_path
	FROM publication_files WHERE publication_id = $1 ORDER BY id ASC`
	files := make([]models.PublicationFile, 0)
	if err := r.db.SelectContext(ctx, &files, query, publicationID); err != nil {
		return nil, fmt.Errorf("list publication files: %w", err)
	}
	return files, nil
}

// Tags lists the attached tags.
func (r *PublicationRepository) Tags(ctx context.Context, publicationID int) ([]models.Tag, error) {
	const query = `SELECT t.id, t.name FROM tags t
	JOIN publication_tags pt ON pt.tag_id = t.id
	WHERE pt.publication_id = $1 ORDER BY t.name ASC`
	tags := make([]models.Tag, 0)
	if err := r.db.SelectContext(ctx, &tags, query, publicationID); err != nil {
		return nil, fmt.Errorf("list publication tags: %w", err)
	}
	return tags, nil
}

// ListByAuthor returns every publication the user is a member of, newest
// first, regardless of review state.
func (r *PublicationRepository) ListByAuthor(ctx context.Context, matricula string) ([]models.Publication, error) {
	const query = `SELECT p.id, p.title, p.description, p.status, p.cover_path, p.views, p.downloads, p.published_at
	FROM publications p
	JOIN publication_members m ON m.publication_id = p.id
	WHERE m.matricula = $1
	ORDER BY p.published_at DESC`
	pubs := make([]models.Publication, 0)
	if err := r.db.SelectContext(ctx, &pubs, query, matricula); err != nil {
		return nil, fmt.Errorf("list publications by author: %w", err)
	}
	return pubs, nil
}

// ListApproved returns the public catalog newest first, each card carrying
// the average rating, author names and tag list as display strings.
func (r *PublicationRepository) ListApproved(ctx context.Context, limit, offset int) ([]models.PublicationSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT p.id, p.title, p.description, p.cover_path, p.views, p.downloads, p.published_at,
	  COALESCE(ROUND(AVG(r.score)::numeric, 1), 0.0)::text AS rating,
	  COALESCE(NULLIF(STRING_AGG(DISTINCT u.first_name || ' ' || u.last_name, ', '), ''), 'Anónimo') AS authors,
	  COALESCE(STRING_AGG(DISTINCT t.name, ', '), '') AS tags
	FROM publications p
	LEFT JOIN ratings r ON r.publication_id = p.id
	LEFT JOIN publication_members pm ON pm.publication_id = p.id
	LEFT JOIN users u ON u.matricula = pm.matricula
	LEFT JOIN publication_tags pt ON pt.publication_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
	WHERE p.status = $1
	GROUP BY p.id, p.title, p.description, p.cover_path, p.views, p.downloads, p.published_at
	ORDER BY p.published_at DESC LIMIT $2 OFFSET $3`
	pubs := make([]models.PublicationSummary, 0)
	if err := r.db.SelectContext(ctx, &pubs, query, models.ModerationApproved, limit, offset); err != nil {
		return nil, fmt.Errorf("list approved publications: %w", err)
	}
	return pubs, nil
}

// IncrementViews bumps the view counter.
func (r *PublicationRepository) IncrementViews(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE publications SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// IncrementDownloads bumps the download counter.
func (r *PublicationRepository) IncrementDownloads(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE publications SET downloads = downloads + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	return nil
}

// Rate records a score once per user. Duplicate ratings surface the unique
// constraint to the service layer.
func (r *PublicationRepository) Rate(ctx context.Context, rating *models.Rating) error {
	const query = `INSERT INTO ratings (publication_id, matricula, score) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, rating.PublicationID, rating.Matricula, rating.Score); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

// RatingSummary returns the average score and the caller's own rating when
// present.
func (r *PublicationRepository) RatingSummary(ctx context.Context, publicationID int, matricula string) (float64, *int, error) {
	var summary struct {
		Average float64 `db:"average"`
		Mine    *int    `db:"mine"`
	}
	const query = `SELECT COALESCE(AVG(score), 0) AS average,
	(SELECT score FROM ratings WHERE publication_id = $1 AND matricula = $2) AS mine
	FROM ratings WHERE publication_id = $1`
	if err := r.db.GetContext(ctx, &summary, query, publicationID, matricula); err != nil {
		return 0, nil, fmt.Errorf("rating summary: %w", err)
	}
	return summary.Average, summary.Mine, nil
}

// AddComment inserts a reader comment.
func (r *PublicationRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (publication_id, matricula, body, created_at)
	VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, comment.PublicationID, comment.Matricula, comment.Body, comment.CreatedAt).Scan(&comment.ID); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetComment fetches one comment row without the author join.
func (r *PublicationRepository) GetComment(ctx context.Context, commentID int) (*models.Comment, error) {
	const query = `SELECT id, publication_id, matricula, body, created_at FROM comments WHERE id = $1`
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, commentID); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes one comment.
func (r *PublicationRepository) DeleteComment(ctx context.Context, commentID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check comment delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetFile fetches one attachment row scoped to its publication.
func (r *PublicationRepository) GetFile(ctx context.Context, publicationID, fileID int) (*models.PublicationFile, error) {
	const query = `SELECT id, publication_id, file_name, file_path
	FROM publication_files WHERE id = $1 AND publication_id = $2`
	var file models.PublicationFile
	if err := r.db.GetContext(ctx, &file, query, fileID, publicationID); err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteFile removes one attachment row.
func (r *PublicationRepository) DeleteFile(ctx context.Context, fileID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM publication_files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("delete publication file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check file delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Comments lists a publication's comments newest first with author names.
func (r *PublicationRepository) Comments(ctx context.Context, publicationID int) ([]models.Comment, error) {
	const query = `SELECT c.id, c.publication_id, c.matricula, u.first_name, u.last_name, u.avatar_path, c.body, c.created_at
	FROM comments c
	JOIN users u ON u.matricula = c.matricula
	WHERE c.publication_id = $1
	ORDER BY c.created_at DESC`
	comments := make([]models.Comment, 0)
	if err := r.db.SelectContext(ctx, &comments, query, publicationID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
