package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type mockEventRepo struct {
	created       *models.Event
	organizers    []string
	organizerOf   map[string]bool
	createErr     error
	updateErr     error
	registerErr   error
	unregisterErr error
	registered    []string
	searched      *models.EventSearchFilter
	hits          []dto.EventHit
	summary       *models.EventSummary
	updated       bool
	deleted       bool
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event, organizers []string) error {
	if m.createErr != nil {
		return m.createErr
	}
	event.ID = 11
	m.created = event
	m.organizers = organizers
	return nil
}

func (m *mockEventRepo) GetSummary(ctx context.Context, id int, viewer string) (*models.EventSummary, error) {
	if m.summary == nil {
		return nil, sql.ErrNoRows
	}
	return m.summary, nil
}

func (m *mockEventRepo) List(ctx context.Context, viewer string, limit, offset int) ([]models.EventSummary, error) {
	return nil, nil
}

func (m *mockEventRepo) ListByUser(ctx context.Context, matricula string) ([]models.EventSummary, error) {
	return nil, nil
}

func (m *mockEventRepo) Organizers(ctx context.Context, eventID int) ([]models.EventOrganizer, error) {
	return nil, nil
}

func (m *mockEventRepo) IsOrganizer(ctx context.Context, eventID int, matricula string) (bool, error) {
	return m.organizerOf[matricula], nil
}

func (m *mockEventRepo) Update(ctx context.Context, id int, title, description, category, venue, coverPath *string, capacity *int, startsAt *time.Time, organizers []string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = true
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id int) error {
	m.deleted = true
	return nil
}

func (m *mockEventRepo) Register(ctx context.Context, eventID int, matricula string) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered = append(m.registered, matricula)
	return nil
}

func (m *mockEventRepo) Unregister(ctx context.Context, eventID int, matricula string) error {
	return m.unregisterErr
}

func (m *mockEventRepo) Search(ctx context.Context, filter models.EventSearchFilter) ([]dto.EventHit, error) {
	m.searched = &filter
	return m.hits, nil
}

type noopStorage struct{}

func (noopStorage) Save(filename string, data []byte) (string, error) { return filename, nil }
func (noopStorage) Delete(filename string) error                      { return nil }

// recordingStorage tracks what an operation saved and deleted.
type recordingStorage struct {
	saved   []string
	deleted []string
}

func (r *recordingStorage) Save(filename string, data []byte) (string, error) {
	r.saved = append(r.saved, filename)
	return filename, nil
}

func (r *recordingStorage) Delete(filename string) error {
	r.deleted = append(r.deleted, filename)
	return nil
}

type mockSearchInvalidator struct {
	patterns []string
}

func (m *mockSearchInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newEventService(repo *mockEventRepo) *EventService {
	return NewEventService(repo, everyoneKnown(), noopStorage{}, nil, nil)
}

func TestEventServiceCreateOrdersCreatorFirst(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo)

	lat, lng := 19.4326, -99.1332
	event, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Hackathon",
		Description: "48 horas",
		Category:    "tecnologia",
		VenueName:   "Biblioteca",
		Latitude:    &lat,
		Longitude:   &lng,
		Capacity:    120,
		StartsAt:    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		Organizers:  []string{"A0HELPER", "A0CREATOR"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 11, event.ID)
	assert.Equal(t, 120, event.Capacity)
	assert.Equal(t, []string{"A0CREATOR", "A0HELPER"}, repo.organizers)
}

func TestEventServiceCreateDefaultsCapacity(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo)

	lat, lng := 19.4326, -99.1332
	event, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Taller",
		Description: "Introducción",
		Category:    "academico",
		VenueName:   "Aula 3",
		Latitude:    &lat,
		Longitude:   &lng,
		StartsAt:    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		Organizers:  []string{"A0CREATOR"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, event.Capacity)
}

func TestEventServiceCreateRequiresOrganizers(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo)

	_, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Taller",
		Description: "Introducción",
		Category:    "academico",
		VenueName:   "Aula 3",
		StartsAt:    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestEventServiceCreateRejectsCreatorOutsideOrganizers(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo)

	_, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Taller",
		Description: "Introducción",
		Category:    "academico",
		VenueName:   "Aula 3",
		StartsAt:    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		Organizers:  []string{"A0HELPER"},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestEventServiceCreateFailureDiscardsCover(t *testing.T) {
	repo := &mockEventRepo{createErr: sql.ErrConnDone}
	storage := &recordingStorage{}
	svc := NewEventService(repo, everyoneKnown(), storage, nil, nil)

	_, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Taller",
		Description: "Introducción",
		Category:    "academico",
		VenueName:   "Aula 3",
		StartsAt:    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		Organizers:  []string{"A0CREATOR"},
	}, &UploadedFile{Name: "poster.png", Data: []byte("png")})
	require.Error(t, err)
	require.Len(t, storage.saved, 1)
	assert.Equal(t, storage.saved, storage.deleted)
}

func TestEventServiceCreateRejectsUnknownOrganizers(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo)

	lat, lng := 19.4326, -99.1332
	_, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Taller",
		Description: "Introducción",
		Category:    "academico",
		VenueName:   "Aula 3",
		Latitude:    &lat,
		Longitude:   &lng,
		StartsAt:    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		Organizers:  []string{"A0CREATOR", "A0GHOST"},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Contains(t, appErrors.FromError(err).Message, "A0GHOST")
	assert.Nil(t, repo.created)
}

func TestEventServiceUpdateOrganizersOnly(t *testing.T) {
	repo := &mockEventRepo{organizerOf: map[string]bool{"A0CREATOR": true}}
	svc := newEventService(repo)

	title := "Nuevo título"
	err := svc.Update(context.Background(), "A0INTRUDER", 11, dto.UpdateEventRequest{Title: &title}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.updated)

	require.NoError(t, svc.Update(context.Background(), "A0CREATOR", 11, dto.UpdateEventRequest{Title: &title}, nil))
	assert.True(t, repo.updated)
}

func TestEventServiceUpdateReplacesCover(t *testing.T) {
	oldCover := "events/old-poster.png"
	repo := &mockEventRepo{
		organizerOf: map[string]bool{"A0CREATOR": true},
		summary: &models.EventSummary{
			Event: models.Event{ID: 11, Title: "Taller", CoverPath: &oldCover},
		},
	}
	storage := &recordingStorage{}
	svc := NewEventService(repo, everyoneKnown(), storage, nil, nil)

	err := svc.Update(context.Background(), "A0CREATOR", 11, dto.UpdateEventRequest{}, &UploadedFile{Name: "new.png", Data: []byte("png")})
	require.NoError(t, err)
	require.Len(t, storage.saved, 1)
	assert.Equal(t, []string{oldCover}, storage.deleted)
}

func TestEventServiceUpdateFailureDiscardsNewCover(t *testing.T) {
	oldCover := "events/old-poster.png"
	repo := &mockEventRepo{
		organizerOf: map[string]bool{"A0CREATOR": true},
		updateErr:   sql.ErrConnDone,
		summary: &models.EventSummary{
			Event: models.Event{ID: 11, Title: "Taller", CoverPath: &oldCover},
		},
	}
	storage := &recordingStorage{}
	svc := NewEventService(repo, everyoneKnown(), storage, nil, nil)

	err := svc.Update(context.Background(), "A0CREATOR", 11, dto.UpdateEventRequest{}, &UploadedFile{Name: "new.png", Data: []byte("png")})
	require.Error(t, err)
	require.Len(t, storage.saved, 1)
	assert.Equal(t, storage.saved, storage.deleted)
}

func TestEventServiceChangesInvalidateSearchCache(t *testing.T) {
	repo := &mockEventRepo{organizerOf: map[string]bool{"A0CREATOR": true}}
	cache := &mockSearchInvalidator{}
	svc := NewEventService(repo, everyoneKnown(), noopStorage{}, cache, nil)

	_, err := svc.Create(context.Background(), "A0CREATOR", dto.CreateEventRequest{
		Title:       "Taller",
		Description: "Introducción",
		Category:    "academico",
		VenueName:   "Aula 3",
		StartsAt:    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		Organizers:  []string{"A0CREATOR"},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "A0CREATOR", 11))
	assert.Equal(t, []string{"search:general:*", "search:general:*"}, cache.patterns)
}

func TestEventServiceUpdateRejectsNonPositiveCapacity(t *testing.T) {
	repo := &mockEventRepo{organizerOf: map[string]bool{"A0CREATOR": true}}
	svc := newEventService(repo)

	zero := 0
	err := svc.Update(context.Background(), "A0CREATOR", 11, dto.UpdateEventRequest{Capacity: &zero}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceDeleteOrganizersOnly(t *testing.T) {
	repo := &mockEventRepo{organizerOf: map[string]bool{"A0CREATOR": true}}
	svc := newEventService(repo)

	err := svc.Delete(context.Background(), "A0INTRUDER", 11)
	require.Error(t, err)
	assert.False(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), "A0CREATOR", 11))
	assert.True(t, repo.deleted)
}

func TestEventServiceRegisterReportsSeatState(t *testing.T) {
	repo := &mockEventRepo{
		summary: &models.EventSummary{
			Event:      models.Event{ID: 3, Title: "Taller", Capacity: 30},
			Registered: 12,
			Attending:  true,
		},
	}
	svc := newEventService(repo)

	seats, err := svc.Register(context.Background(), 3, "A01234567")
	require.NoError(t, err)
	assert.Equal(t, []string{"A01234567"}, repo.registered)
	assert.Equal(t, 3, seats.EventID)
	assert.Equal(t, 12, seats.Registered)
	assert.Equal(t, 18, seats.Remaining)
	assert.True(t, seats.Attending)
}

func TestEventServiceRegisterCapacityFull(t *testing.T) {
	repo := &mockEventRepo{registerErr: appErrors.ErrCapacityFull}
	svc := newEventService(repo)

	_, err := svc.Register(context.Background(), 3, "A01234567")
	require.ErrorIs(t, err, appErrors.ErrCapacityFull)
}

func TestEventServiceUnregisterNotRegistered(t *testing.T) {
	repo := &mockEventRepo{unregisterErr: sql.ErrNoRows}
	svc := newEventService(repo)

	_, err := svc.Unregister(context.Background(), 3, "A01234567")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEventServiceSearchRequiresCriteria(t *testing.T) {
	svc := newEventService(&mockEventRepo{})

	_, err := svc.Search(context.Background(), dto.EventSearchRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceSearchRejectsPartialGeo(t *testing.T) {
	lat := 19.4326
	svc := newEventService(&mockEventRepo{})

	_, err := svc.Search(context.Background(), dto.EventSearchRequest{Keyword: "taller", Latitude: &lat})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceSearchRejectsInvertedRange(t *testing.T) {
	svc := newEventService(&mockEventRepo{})

	_, err := svc.Search(context.Background(), dto.EventSearchRequest{From: "2025-06-30", To: "2025-06-01"})
	require.Error(t, err)
}

func TestEventServiceSearchBuildsFilter(t *testing.T) {
	repo := &mockEventRepo{
		hits: []dto.EventHit{{EventSummary: models.EventSummary{
			Event: models.Event{ID: 1, Title: "Taller", CreatedAt: time.Now().Add(-2 * time.Hour)},
		}}},
	}
	svc := newEventService(repo)

	lat, lng, radius := 19.4326, -99.1332, 5.0
	hits, err := svc.Search(context.Background(), dto.EventSearchRequest{
		Keyword:   "taller",
		From:      "2025-06-01",
		To:        "2025-06-30",
		Category:  "academico",
		Latitude:  &lat,
		Longitude: &lng,
		RadiusKm:  &radius,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.searched)
	assert.Equal(t, "taller", repo.searched.Keyword)
	assert.True(t, repo.searched.HasRadius())
	require.Len(t, hits, 1)
	assert.Equal(t, "hace 2 horas", hits[0].TimeAgo)
}
