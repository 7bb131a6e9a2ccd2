package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
)

// searchLimit caps each result set of the general search.
const searchLimit = 20

// SearchRepository runs the keyword queries behind the general search. The
// three sets are fetched independently so the service can fan them out.
type SearchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository constructs the repository.
func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// termConditions appends one ILIKE clause per term across the given columns.
// A row matches when any term matches any column. Parameters bind in append
// order.
func termConditions(terms []string, columns []string, args *[]interface{}) string {
	clauses := make([]string, 0, len(terms))
	for _, term := range terms {
		*args = append(*args, "%"+term+"%")
		placeholder := fmt.Sprintf("$%d", len(*args))
		cols := make([]string, 0, len(columns))
		for _, col := range columns {
			cols = append(cols, fmt.Sprintf("%s ILIKE %s", col, placeholder))
		}
		clauses = append(clauses, "("+strings.Join(cols, " OR ")+")")
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// Profiles matches active users by name, surname or major, excluding the
// searcher. Each hit carries its interests and whether the searcher already
// follows it.
func (r *SearchRepository) Profiles(ctx context.Context, terms []string, searcher string) ([]dto.ProfileHit, error) {
	args := []interface{}{models.StatusActive, searcher}
	match := termConditions(terms, []string{"u.first_name", "u.last_name", "u.major"}, &args)
	args = append(args, searchLimit)

	query := fmt.Sprintf(`SELECT u.matricula, u.first_name, u.last_name, u.avatar_path, u.major, u.role,
	  COALESCE(STRING_AGG(DISTINCT i.name, ', '), '') AS interests,
	  EXISTS (SELECT 1 FROM follows f WHERE f.follower_matricula = $2 AND f.followed_matricula = u.matricula) AS is_following
	FROM users u
	LEFT JOIN user_interests ui ON ui.matricula = u.matricula
	LEFT JOIN interests i ON i.id = ui.interest_id
	WHERE u.status = $1 AND u.matricula != $2 AND %s
	GROUP BY u.matricula, u.first_name, u.last_name, u.avatar_path, u.major, u.role
	ORDER BY u.first_name ASC LIMIT $%d`, match, len(args))

	hits := make([]dto.ProfileHit, 0, searchLimit)
	if err := r.db.SelectContext(ctx, &hits, query, args...); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return hits, nil
}

// Publications matches approved works by title or description. Hits carry the
// average rating, the author names and the tag list as display strings.
func (r *SearchRepository) Publications(ctx context.Context, terms []string) ([]models.PublicationSummary, error) {
	args := []interface{}{models.ModerationApproved}
	match := termConditions(terms, []string{"p.title", "p.description"}, &args)
	args = append(args, searchLimit)

	query := fmt.Sprintf(`SELECT p.id, p.title, p.description, p.cover_path, p.published_at,
	  COALESCE(ROUND(AVG(r.score)::numeric, 1), 0.0)::text AS rating,
	  COALESCE(NULLIF(STRING_AGG(DISTINCT u.first_name || ' ' || u.last_name, ', '), ''), 'Anónimo') AS authors,
	  COALESCE(STRING_AGG(DISTINCT t.name, ', '), '') AS tags
	FROM publications p
	LEFT JOIN ratings r ON r.publication_id = p.id
	LEFT JOIN publication_members pm ON pm.publication_id = p.id
	LEFT JOIN users u ON u.matricula = pm.matricula
	LEFT JOIN publication_tags pt ON pt.publication_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
	WHERE p.status = $1 AND %s
	GROUP BY p.id, p.title, p.description, p.cover_path, p.published_at
	ORDER BY p.published_at DESC LIMIT $%d`, match, len(args))

	hits := make([]models.PublicationSummary, 0, searchLimit)
	if err := r.db.SelectContext(ctx, &hits, query, args...); err != nil {
		return nil, fmt.Errorf("search publications: %w", err)
	}
	return hits, nil
}

// Events matches events by title, description or venue, newest first. Hits
// carry the attendee count and the viewer's registration flag.
func (r *SearchRepository) Events(ctx context.Context, terms []string, viewer string) ([]models.EventSummary, error) {
	args := []interface{}{viewer}
	match := termConditions(terms, []string{"e.title", "e.description", "e.venue_name"}, &args)
	args = append(args, searchLimit)

	query := fmt.Sprintf(`SELECT `+eventColumnsPrefixed+`,
	  (SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS registered,
	  EXISTS (SELECT 1 FROM event_attendees a WHERE a.event_id = e.id AND a.matricula = $1) AS attending
	FROM events e
	WHERE %s
	ORDER BY e.starts_at DESC LIMIT $%d`, match, len(args))

	hits := make([]models.EventSummary, 0, searchLimit)
	if err := r.db.SelectContext(ctx, &hits, query, args...); err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return hits, nil
}

// Suggestions ranks other active profiles by how many interests they share
// with the user.
func (r *SearchRepository) Suggestions(ctx context.Context, matricula string) ([]dto.SuggestionItem, error) {
	const query = `SELECT u.matricula, u.first_name, u.last_name, u.avatar_path, u.major, COUNT(*) AS shared
	FROM user_interests mine
	JOIN user_interests theirs ON theirs.interest_id = mine.interest_id AND theirs.matricula != mine.matricula
	JOIN users u ON u.matricula = theirs.matricula
	WHERE mine.matricula = $1 AND u.status = $2
	  AND NOT EXISTS (SELECT 1 FROM follows f WHERE f.follower_matricula = $1 AND f.followed_matricula = u.matricula)
	GROUP BY u.matricula, u.first_name, u.last_name, u.avatar_path, u.major
	ORDER BY shared DESC, u.first_name ASC LIMIT 10`
	items := make([]dto.SuggestionItem, 0, 10)
	if err := r.db.SelectContext(ctx, &items, query, matricula, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return items, nil
}
