package models

import "time"

// Event is a campus event with a registration capacity.
type Event struct {
	ID          int       `db:"id" json:"id_evento"`
	Title       string    `db:"title" json:"titulo"`
	Description string    `db:"description" json:"descripcion"`
	Category    string    `db:"category" json:"categoria"`
	VenueName   string    `db:"venue_name" json:"lugar"`
	Latitude    *float64  `db:"latitude" json:"latitud,omitempty"`
	Longitude   *float64  `db:"longitude" json:"longitud,omitempty"`
	Capacity    int       `db:"capacity" json:"cupo"`
	CoverPath   *string   `db:"cover_path" json:"imagen,omitempty"`
	StartsAt    time.Time `db:"starts_at" json:"fecha"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// EventSummary is an event card with the derived attendance fields the
// listings expose.
type EventSummary struct {
	Event
	Registered int  `db:"registered" json:"registrados"`
	Attending  bool `db:"attending" json:"inscrito"`
}

// EventOrganizer is a user who manages an event.
type EventOrganizer struct {
	EventID    int     `db:"event_id" json:"-"`
	Matricula  string  `db:"matricula" json:"matricula"`
	FirstName  string  `db:"first_name" json:"nombre"`
	LastName   string  `db:"last_name" json:"apellido"`
	AvatarPath *string `db:"avatar_path" json:"imagen,omitempty"`
}

// EventSearchFilter holds the optional criteria of the advanced event
// search. Zero values mean the criterion is absent.
type EventSearchFilter struct {
	Keyword   string
	From      *time.Time
	To        *time.Time
	Category  string
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
}

// HasRadius reports whether the filter carries a complete geographic
// constraint.
func (f EventSearchFilter) HasRadius() bool {
	return f.Latitude != nil && f.Longitude != nil && f.RadiusKm != nil
}
