package dto

import "github.com/teshub/teshub-api/internal/models"

// CreateEventRequest holds the multipart fields for event creation. Capacity
// defaults to 50 seats when omitted.
type CreateEventRequest struct {
	Title       string   `form:"titulo" binding:"required"`
	Description string   `form:"descripcion" binding:"required"`
	Category    string   `form:"categoria" binding:"required"`
	VenueName   string   `form:"lugar" binding:"required"`
	Latitude    *float64 `form:"latitud" binding:"required"`
	Longitude   *float64 `form:"longitud" binding:"required"`
	Capacity    int      `form:"cupo"`
	StartsAt    string   `form:"fecha" binding:"required"`
	Organizers  []string `form:"organizadores"`
}

// UpdateEventRequest carries the editable fields, all optional.
type UpdateEventRequest struct {
	Title       *string  `form:"titulo"`
	Description *string  `form:"descripcion"`
	Category    *string  `form:"categoria"`
	VenueName   *string  `form:"lugar"`
	Capacity    *int     `form:"cupo"`
	StartsAt    *string  `form:"fecha"`
	Organizers  []string `form:"organizadores"`
}

// EventRegistrationResponse reports the seat state after registering or
// cancelling.
type EventRegistrationResponse struct {
	EventID    int  `json:"id_evento"`
	Registered int  `json:"inscritos"`
	Remaining  int  `json:"cupo_disponible"`
	Attending  bool `json:"inscrito"`
}

// EventDetailResponse assembles the event page.
type EventDetailResponse struct {
	models.EventSummary
	TimeAgo    string                  `json:"hace_cuanto"`
	Organizers []models.EventOrganizer `json:"organizadores"`
}

// EventSearchRequest captures the query parameters of the advanced event
// search. All criteria are optional and combine with AND.
type EventSearchRequest struct {
	Keyword   string   `form:"palabra"`
	From      string   `form:"desde"`
	To        string   `form:"hasta"`
	Category  string   `form:"categoria"`
	Latitude  *float64 `form:"latitud"`
	Longitude *float64 `form:"longitud"`
	RadiusKm  *float64 `form:"radio"`
}
