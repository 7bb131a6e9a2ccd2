package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	"github.com/teshub/teshub-api/internal/repository"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.Event, organizers []string) error
	GetSummary(ctx context.Context, id int, viewer string) (*models.EventSummary, error)
	List(ctx context.Context, viewer string, limit, offset int) ([]models.EventSummary, error)
	ListByUser(ctx context.Context, matricula string) ([]models.EventSummary, error)
	Organizers(ctx context.Context, eventID int) ([]models.EventOrganizer, error)
	IsOrganizer(ctx context.Context, eventID int, matricula string) (bool, error)
	Update(ctx context.Context, id int, title, description, category, venue, coverPath *string, capacity *int, startsAt *time.Time, organizers []string) error
	Delete(ctx context.Context, id int) error
	Register(ctx context.Context, eventID int, matricula string) error
	Unregister(ctx context.Context, eventID int, matricula string) error
	Search(ctx context.Context, filter models.EventSearchFilter) ([]dto.EventHit, error)
}

const defaultEventCapacity = 50

// EventService implements event publishing and capacity-aware registration.
type EventService struct {
	events  eventRepository
	users   memberChecker
	storage fileStore
	cache   searchInvalidator
	logger  *zap.Logger
}

// NewEventService constructs an EventService instance.
func NewEventService(events eventRepository, users memberChecker, storage fileStore, cache searchInvalidator, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, users: users, storage: storage, cache: cache, logger: logger}
}

func (s *EventService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, searchCachePattern); err != nil {
		s.logger.Warn("failed to invalidate search cache", zap.Error(err))
	}
}

// Create publishes an event. The creator must name themselves in the
// organizer list and every listed organizer must be a registered account.
func (s *EventService) Create(ctx context.Context, creator string, req dto.CreateEventRequest, cover *UploadedFile) (*models.Event, error) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "la fecha debe tener formato RFC3339")
	}
	if len(req.Organizers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "debe haber al menos un organizador")
	}
	if !containsMatricula(req.Organizers, creator) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "debes estar incluido como organizador para crear el evento")
	}
	if err := s.requireKnownOrganizers(ctx, req.Organizers); err != nil {
		return nil, err
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		VenueName:   req.VenueName,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Capacity:    capacity,
		StartsAt:    startsAt,
	}
	if cover != nil {
		path, err := s.storage.Save(fmt.Sprintf("events/%d-%s", time.Now().UnixNano(), cover.Name), cover.Data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store event cover")
		}
		event.CoverPath = &path
	}

	organizers := dedupeOrganizers(creator, req.Organizers)
	if err := s.events.Create(ctx, event, organizers); err != nil {
		if event.CoverPath != nil {
			if derr := s.storage.Delete(*event.CoverPath); derr != nil {
				s.logger.Warn("failed to discard event cover", zap.String("path", *event.CoverPath), zap.Error(derr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.invalidateSearch(ctx)

	s.logger.Info("event created",
		zap.Int("event", event.ID),
		zap.String("creator", creator))
	return event, nil
}

// Update edits an event. Organizers only; replacing the organizer list
// keeps the caller on it.
func (s *EventService) Update(ctx context.Context, matricula string, eventID int, req dto.UpdateEventRequest, cover *UploadedFile) error {
	if err := s.requireOrganizer(ctx, eventID, matricula); err != nil {
		return err
	}

	var startsAt *time.Time
	if req.StartsAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "la fecha debe tener formato RFC3339")
		}
		startsAt = &parsed
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "el cupo debe ser mayor que cero")
	}

	var organizers []string
	if len(req.Organizers) > 0 {
		if err := s.requireKnownOrganizers(ctx, req.Organizers); err != nil {
			return err
		}
		organizers = dedupeOrganizers(matricula, req.Organizers)
	}

	var coverPath, previousCover *string
	if cover != nil {
		current, err := s.events.GetSummary(ctx, eventID, matricula)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrNotFound
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch event")
		}
		previousCover = current.CoverPath

		path, err := s.storage.Save(fmt.Sprintf("events/%d-%s", time.Now().UnixNano(), cover.Name), cover.Data)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store event cover")
		}
		coverPath = &path
	}

	if err := s.events.Update(ctx, eventID, req.Title, req.Description, req.Category, req.VenueName, coverPath, req.Capacity, startsAt, organizers); err != nil {
		if coverPath != nil {
			if derr := s.storage.Delete(*coverPath); derr != nil {
				s.logger.Warn("failed to discard event cover", zap.String("path", *coverPath), zap.Error(derr))
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.invalidateSearch(ctx)

	if coverPath != nil && previousCover != nil {
		if err := s.storage.Delete(*previousCover); err != nil {
			s.logger.Warn("failed to delete replaced event cover", zap.Error(err))
		}
	}
	return nil
}

// Delete removes an event. Organizers only.
func (s *EventService) Delete(ctx context.Context, matricula string, eventID int) error {
	if err := s.requireOrganizer(ctx, eventID, matricula); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.invalidateSearch(ctx)
	return nil
}

// Detail assembles the event page for a viewer.
func (s *EventService) Detail(ctx context.Context, eventID int, viewer string) (*dto.EventDetailResponse, error) {
	event, err := s.events.GetSummary(ctx, eventID, viewer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch event")
	}
	organizers, err := s.events.Organizers(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch organizers")
	}

	return &dto.EventDetailResponse{
		EventSummary: *event,
		TimeAgo:      dto.TimeAgo(event.CreatedAt, time.Now().UTC()),
		Organizers:   organizers,
	}, nil
}

// List returns upcoming events soonest first.
func (s *EventService) List(ctx context.Context, viewer string, limit, offset int) ([]models.EventSummary, error) {
	events, err := s.events.List(ctx, viewer, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// ListByUser returns the events the user organizes or attends.
func (s *EventService) ListByUser(ctx context.Context, matricula string) ([]models.EventSummary, error) {
	events, err := s.events.ListByUser(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user events")
	}
	return events, nil
}

// Register claims a seat while there is capacity left and reports the seat
// state afterwards.
func (s *EventService) Register(ctx context.Context, eventID int, matricula string) (*dto.EventRegistrationResponse, error) {
	if err := s.events.Register(ctx, eventID, matricula); err != nil {
		if errors.Is(err, appErrors.ErrCapacityFull) {
			return nil, appErrors.ErrCapacityFull
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "ya estás inscrito en este evento")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register attendance")
	}
	return s.seatState(ctx, eventID, matricula)
}

// Unregister releases the caller's seat and reports the seat state
// afterwards.
func (s *EventService) Unregister(ctx context.Context, eventID int, matricula string) (*dto.EventRegistrationResponse, error) {
	if err := s.events.Unregister(ctx, eventID, matricula); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no estás inscrito en este evento")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel attendance")
	}
	return s.seatState(ctx, eventID, matricula)
}

func (s *EventService) seatState(ctx context.Context, eventID int, viewer string) (*dto.EventRegistrationResponse, error) {
	summary, err := s.events.GetSummary(ctx, eventID, viewer)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch event")
	}
	return &dto.EventRegistrationResponse{
		EventID:    eventID,
		Registered: summary.Registered,
		Remaining:  summary.Capacity - summary.Registered,
		Attending:  summary.Attending,
	}, nil
}

func (s *EventService) requireOrganizer(ctx context.Context, eventID int, matricula string) error {
	organizer, err := s.events.IsOrganizer(ctx, eventID, matricula)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check organizer")
	}
	if !organizer {
		return appErrors.Clone(appErrors.ErrForbidden, "solo los organizadores pueden modificar el evento")
	}
	return nil
}

// requireKnownOrganizers rejects organizer lists naming unknown accounts.
func (s *EventService) requireKnownOrganizers(ctx context.Context, matriculas []string) error {
	if len(matriculas) == 0 {
		return nil
	}
	found, err := s.users.ExistingMatriculas(ctx, matriculas)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check organizers")
	}
	known := make(map[string]bool, len(found))
	for _, m := range found {
		known[m] = true
	}
	missing := make([]string, 0)
	for _, m := range matriculas {
		if !known[m] {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("organizadores no registrados: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func containsMatricula(matriculas []string, target string) bool {
	for _, m := range matriculas {
		if m == target {
			return true
		}
	}
	return false
}

// dedupeOrganizers puts the creator first and drops repeated matriculas.
func dedupeOrganizers(creator string, rest []string) []string {
	organizers := []string{creator}
	seen := map[string]bool{creator: true}
	for _, m := range rest {
		if !seen[m] {
			seen[m] = true
			organizers = append(organizers, m)
		}
	}
	return organizers
}

// Search runs the advanced multi-criteria search. Searching with no
// criteria at all is rejected; a partial coordinate pair is too.
func (s *EventService) Search(ctx context.Context, req dto.EventSearchRequest) ([]dto.EventHit, error) {
	filter := models.EventSearchFilter{
		Keyword:  req.Keyword,
		Category: req.Category,
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "la fecha inicial debe tener formato AAAA-MM-DD")
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "la fecha final debe tener formato AAAA-MM-DD")
		}
		end := to.Add(24*time.Hour - time.Second)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "el rango de fechas está invertido")
	}

	geoFields := 0
	if req.Latitude != nil {
		geoFields++
	}
	if req.Longitude != nil {
		geoFields++
	}
	if req.RadiusKm != nil {
		geoFields++
	}
	switch geoFields {
	case 0:
	case 3:
		if *req.RadiusKm <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "el radio debe ser mayor que cero")
		}
		filter.Latitude = req.Latitude
		filter.Longitude = req.Longitude
		filter.RadiusKm = req.RadiusKm
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "latitud, longitud y radio deben enviarse juntos")
	}

	if filter.Keyword == "" && filter.Category == "" && filter.From == nil && filter.To == nil && !filter.HasRadius() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "se requiere al menos un criterio de búsqueda")
	}

	hits, err := s.events.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search events")
	}

	now := time.Now().UTC()
	for i := range hits {
		hits[i].TimeAgo = dto.TimeAgo(hits[i].CreatedAt, now)
	}
	return hits, nil
}
