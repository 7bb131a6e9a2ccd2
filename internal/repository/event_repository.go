package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

const eventColumns = `id, title, description, category, venue_name, latitude, longitude, capacity, cover_path, starts_at, created_at`

const eventColumnsPrefixed = `e.id, e.title, e.description, e.category, e.venue_name, e.latitude, e.longitude, e.capacity, e.cover_path, e.starts_at, e.created_at`

// EventRepository persists events and registrations.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event with its organizers in one transaction. The
// creator is always an organizer.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, organizers []string) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create event: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO events (title, description, category, venue_name, latitude, longitude, capacity, cover_path, starts_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insert, event.Title, event.Description, event.Category, event.VenueName,
		event.Latitude, event.Longitude, event.Capacity, event.CoverPath, event.StartsAt, event.CreatedAt).Scan(&event.ID); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	for _, matricula := range organizers {
		if _, err = tx.ExecContext(ctx, `INSERT INTO event_organizers (event_id, matricula) VALUES ($1, $2) ON CONFLICT DO NOTHING`, event.ID, matricula); err != nil {
			return fmt.Errorf("insert event organizer %s: %w", matricula, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create event: %w", err)
	}
	return nil
}

// GetSummary fetches one event with its attendance fields from the
// viewer's perspective.
func (r *EventRepository) GetSummary(ctx context.Context, id int, viewer string) (*models.EventSummary, error) {
	const query = `SELECT ` + eventColumns + `,
	(SELECT COUNT(*) FROM event_attendees WHERE event_id = events.id) AS registered,
	EXISTS (SELECT 1 FROM event_attendees WHERE event_id = events.id AND matricula = $2) AS attending
	FROM events WHERE id = $1`
	var event models.EventSummary
	if err := r.db.GetContext(ctx, &event, query, id, viewer); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns upcoming events soonest first.
func (r *EventRepository) List(ctx context.Context, viewer string, limit, offset int) ([]models.EventSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + eventColumns + `,
	(SELECT COUNT(*) FROM event_attendees WHERE event_id = events.id) AS registered,
	EXISTS (SELECT 1 FROM event_attendees WHERE event_id = events.id AND matricula = $1) AS attending
	FROM events WHERE starts_at >= $2
	ORDER BY starts_at ASC LIMIT $3 OFFSET $4`
	events := make([]models.EventSummary, 0)
	if err := r.db.SelectContext(ctx, &events, query, viewer, time.Now().UTC(), limit, offset); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListByUser returns the events a user organizes or attends, newest first.
func (r *EventRepository) ListByUser(ctx context.Context, matricula string) ([]models.EventSummary, error) {
	const query = `SELECT ` + eventColumnsPrefixed + `,
	(SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS registered,
	EXISTS (SELECT 1 FROM event_attendees a WHERE a.event_id = e.id AND a.matricula = $1) AS attending
	FROM events e
	WHERE EXISTS (SELECT 1 FROM event_organizers o WHERE o.event_id = e.id AND o.matricula = $1)
	   OR EXISTS (SELECT 1 FROM event_attendees a WHERE a.event_id = e.id AND a.matricula = $1)
	ORDER BY e.starts_at DESC`
	events := make([]models.EventSummary, 0)
	if err := r.db.SelectContext(ctx, &events, query, matricula); err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	return events, nil
}

// IsOrganizer reports whether the user organizes the event.
func (r *EventRepository) IsOrganizer(ctx context.Context, eventID int, matricula string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM event_organizers WHERE event_id = $1 AND matricula = $2)`
	if err := r.db.GetContext(ctx, &exists, query, eventID, matricula); err != nil {
		return false, fmt.Errorf("check event organizer: %w", err)
	}
	return exists, nil
}

// Update applies the provided fields. Nil pointers leave columns untouched.
// A non-nil organizers slice replaces the organizer set in the same
// transaction.
func (r *EventRepository) Update(ctx context.Context, id int, title, description, category, venue, coverPath *string, capacity *int, startsAt *time.Time, organizers []string) error {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)

	if title != nil {
		args = append(args, *title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if category != nil {
		args = append(args, *category)
		sets = append(sets, fmt.Sprintf("category = $%d", len(args)))
	}
	if venue != nil {
		args = append(args, *venue)
		sets = append(sets, fmt.Sprintf("venue_name = $%d", len(args)))
	}
	if coverPath != nil {
		args = append(args, *coverPath)
		sets = append(sets, fmt.Sprintf("cover_path = $%d", len(args)))
	}
	if capacity != nil {
		args = append(args, *capacity)
		sets = append(sets, fmt.Sprintf("capacity = $%d", len(args)))
	}
	if startsAt != nil {
		args = append(args, *startsAt)
		sets = append(sets, fmt.Sprintf("starts_at = $%d", len(args)))
	}
	if len(sets) == 0 && organizers == nil {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update event: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(sets) > 0 {
		args = append(args, id)
		query := fmt.Sprintf("UPDATE events SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
		var res sql.Result
		if res, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		var affected int64
		if affected, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("check update event rows: %w", err)
		}
		if affected == 0 {
			err = sql.ErrNoRows
			return err
		}
	}
	if organizers != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM event_organizers WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("clear event organizers: %w", err)
		}
		for _, matricula := range organizers {
			if _, err = tx.ExecContext(ctx, `INSERT INTO event_organizers (event_id, matricula) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, matricula); err != nil {
				return fmt.Errorf("insert event organizer %s: %w", matricula, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update event: %w", err)
	}
	return nil
}

// Delete removes the event. Organizer and attendee rows go with it via
// cascading foreign keys.
func (r *EventRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete event rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Organizers lists an event's organizers with their names.
func (r *EventRepository) Organizers(ctx context.Context, eventID int) ([]models.EventOrganizer, error) {
	const query = `SELECT o.event_id, o.matricula, u.first_name, u.last_name, u.avatar_path
	FROM event_organizers o
	JOIN users u ON u.matricula = o.matricula
	WHERE o.event_id = $1`
	organizers := make([]models.EventOrganizer, 0)
	if err := r.db.SelectContext(ctx, &organizers, query, eventID); err != nil {
		return nil, fmt.Errorf("list event organizers: %w", err)
	}
	return organizers, nil
}

// Register claims a seat. The capacity check and the insert run in one
// transaction with the event row locked, so two concurrent registrations
// for the last seat cannot both succeed.
func (r *EventRepository) Register(ctx context.Context, eventID int, matricula string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	if err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, eventID); err != nil {
		return err
	}
	var registered int
	if err = tx.GetContext(ctx, &registered, `SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("count event attendees: %w", err)
	}
	if registered >= capacity {
		err = appErrors.ErrCapacityFull
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO event_attendees (event_id, matricula, registered_at) VALUES ($1, $2, $3)`, eventID, matricula, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert event attendee: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit event registration: %w", err)
	}
	return nil
}

// Unregister releases the caller's seat.
func (r *EventRepository) Unregister(ctx context.Context, eventID int, matricula string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = $1 AND matricula = $2`, eventID, matricula)
	if err != nil {
		return fmt.Errorf("delete event attendee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check unregister rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Search runs the advanced event search. Criteria combine with AND; absent
// criteria add no clause. The geographic filter computes a haversine
// distance in a subquery because Postgres cannot reference the alias in
// the outer WHERE otherwise.
func (r *EventRepository) Search(ctx context.Context, filter models.EventSearchFilter) ([]dto.EventHit, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 7)

	if terms := strings.Fields(filter.Keyword); len(terms) > 0 {
		conditions = append(conditions, termConditions(terms, []string{"title", "description", "venue_name"}, &args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("starts_at <= $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}

	distanceExpr := "NULL::double precision AS distancia"
	if filter.HasRadius() {
		args = append(args, *filter.Latitude)
		latArg := len(args)
		args = append(args, *filter.Longitude)
		lngArg := len(args)
		distanceExpr = fmt.Sprintf(`(6371 * acos(
	cos(radians($%d)) * cos(radians(latitude)) * cos(radians(longitude) - radians($%d))
	+ sin(radians($%d)) * sin(radians(latitude)))) AS distancia`, latArg, lngArg, latArg)
		conditions = append(conditions, "latitude IS NOT NULL AND longitude IS NOT NULL")
	}

	builder := strings.Builder{}
	builder.WriteString("SELECT * FROM (SELECT ")
	builder.WriteString(eventColumns)
	builder.WriteString(", ")
	builder.WriteString(distanceExpr)
	builder.WriteString(" FROM events")
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(") located")
	if filter.HasRadius() {
		args = append(args, *filter.RadiusKm)
		builder.WriteString(fmt.Sprintf(" WHERE distancia <= $%d", len(args)))
	}
	builder.WriteString(" ORDER BY starts_at DESC LIMIT 50")

	hits := make([]dto.EventHit, 0)
	if err := r.db.SelectContext(ctx, &hits, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return hits, nil
}
