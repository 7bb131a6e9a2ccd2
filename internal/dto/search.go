package dto

import "github.com/teshub/teshub-api/internal/models"

// ProfileHit is a user matched by the general search, enriched with the
// searcher's follow state and the hit's interests.
type ProfileHit struct {
	Matricula   string      `db:"matricula" json:"matricula"`
	FirstName   string      `db:"first_name" json:"nombre"`
	LastName    string      `db:"last_name" json:"apellido"`
	AvatarPath  *string     `db:"avatar_path" json:"imagen,omitempty"`
	Major       *string     `db:"major" json:"carrera,omitempty"`
	Role        models.Role `db:"role" json:"-"`
	RoleLabel   string      `db:"-" json:"rol"`
	Interests   string      `db:"interests" json:"intereses"`
	IsFollowing bool        `db:"is_following" json:"siguiendo"`
}

// PublicationHit is an approved publication matched by the general search.
type PublicationHit struct {
	models.PublicationSummary
}

// EventHit is an event matched by either search, with its distance when a
// geographic filter applied.
type EventHit struct {
	models.EventSummary
	TimeAgo    string   `db:"-" json:"hace_cuanto"`
	Remaining  int      `db:"-" json:"cupo_disponible"`
	DistanceKm *float64 `db:"distancia" json:"distancia,omitempty"`
}

// GeneralSearchResponse groups the three concurrently gathered result sets.
type GeneralSearchResponse struct {
	Profiles     []ProfileHit     `json:"perfiles"`
	Publications []PublicationHit `json:"publicaciones"`
	Events       []EventHit       `json:"eventos"`
}

// SuggestionItem is a suggested profile ranked by shared interests.
type SuggestionItem struct {
	Matricula  string  `db:"matricula" json:"matricula"`
	FirstName  string  `db:"first_name" json:"nombre"`
	LastName   string  `db:"last_name" json:"apellido"`
	AvatarPath *string `db:"avatar_path" json:"imagen,omitempty"`
	Major      *string `db:"major" json:"carrera,omitempty"`
	Shared     int     `db:"shared" json:"intereses_comunes"`
}
