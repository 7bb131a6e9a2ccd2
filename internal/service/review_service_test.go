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
	"github.com/teshub/teshub-api/pkg/export"
)

type mockReviewRepo struct {
	recorded []*models.ReviewRecord
	queue    []models.PendingReviewItem
	history  []models.ReviewHistoryItem
}

func (m *mockReviewRepo) Record(ctx context.Context, review *models.ReviewRecord) error {
	review.ID = len(m.recorded) + 1
	review.ReviewedAt = time.Now().UTC()
	m.recorded = append(m.recorded, review)
	return nil
}

func (m *mockReviewRepo) PendingQueue(ctx context.Context, advisorMatricula string) ([]models.PendingReviewItem, error) {
	return m.queue, nil
}

func (m *mockReviewRepo) History(ctx context.Context, publicationID int) ([]models.ReviewHistoryItem, error) {
	return m.history, nil
}

type mockSupervisionChecker struct {
	allowed bool
}

func (m *mockSupervisionChecker) Supervises(ctx context.Context, advisorMatricula string, publicationID int) (bool, error) {
	return m.allowed, nil
}

type mockPublicationLookup struct {
	pub *models.Publication
}

func (m *mockPublicationLookup) GetByID(ctx context.Context, id int) (*models.Publication, error) {
	if m.pub == nil {
		return nil, sql.ErrNoRows
	}
	return m.pub, nil
}

func pendingPublication() *models.Publication {
	return &models.Publication{ID: 9, Title: "Tesis", Description: "Resumen", PublishedAt: time.Now().Add(-48 * time.Hour)}
}

func TestReviewServiceRecordsVerdict(t *testing.T) {
	reviews := &mockReviewRepo{}
	svc := NewReviewService(reviews, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), nil, nil)

	review, err := svc.Review(context.Background(), "A0ADVISOR", 9, dto.ReviewRequest{
		Status:   models.ModerationCorrections,
		Comments: "Falta la bibliografía",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModerationCorrections, review.AssignedStatus)
	require.Len(t, reviews.recorded, 1)
}

func TestReviewServiceVerdictInvalidatesSearchCache(t *testing.T) {
	cache := &mockSearchInvalidator{}
	svc := NewReviewService(&mockReviewRepo{}, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), cache, nil)

	_, err := svc.Review(context.Background(), "A0ADVISOR", 9, dto.ReviewRequest{
		Status:   models.ModerationApproved,
		Comments: "Listo",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"search:general:*"}, cache.patterns)
}

func TestReviewServiceRejectsUnknownVerdict(t *testing.T) {
	svc := NewReviewService(&mockReviewRepo{}, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), nil, nil)

	_, err := svc.Review(context.Background(), "A0ADVISOR", 9, dto.ReviewRequest{
		Status:   models.ModerationStatus("publicado"),
		Comments: "x",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceRejectsPendingVerdict(t *testing.T) {
	svc := NewReviewService(&mockReviewRepo{}, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), nil, nil)

	_, err := svc.Review(context.Background(), "A0ADVISOR", 9, dto.ReviewRequest{
		Status:   models.ModerationPending,
		Comments: "x",
	})
	require.Error(t, err)
}

func TestReviewServiceForbidsUnrelatedAdvisor(t *testing.T) {
	reviews := &mockReviewRepo{}
	svc := NewReviewService(reviews, &mockSupervisionChecker{allowed: false}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), nil, nil)

	_, err := svc.Review(context.Background(), "A0OTHER", 9, dto.ReviewRequest{
		Status:   models.ModerationApproved,
		Comments: "Listo",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, reviews.recorded)
}

func TestReviewServiceReviewsApprovedWorkAgain(t *testing.T) {
	pub := pendingPublication()
	approved := models.ModerationApproved
	pub.Status = &approved
	reviews := &mockReviewRepo{}
	svc := NewReviewService(reviews, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pub}, export.NewPDFExporter(), nil, nil)

	_, err := svc.Review(context.Background(), "A0ADVISOR", 9, dto.ReviewRequest{
		Status:   models.ModerationRejected,
		Comments: "x",
	})
	require.NoError(t, err)
	require.Len(t, reviews.recorded, 1)
	assert.Equal(t, models.ModerationRejected, reviews.recorded[0].AssignedStatus)
}

func TestReviewServicePendingQueueAddsTimeAgo(t *testing.T) {
	reviews := &mockReviewRepo{
		queue: []models.PendingReviewItem{
			{PublicationID: 1, Title: "Tesis A", PublishedAt: time.Now().Add(-72 * time.Hour)},
			{PublicationID: 2, Title: "Tesis B", PublishedAt: time.Now().Add(-30 * time.Minute)},
		},
	}
	svc := NewReviewService(reviews, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), nil, nil)

	queue, err := svc.PendingQueue(context.Background(), "A0ADVISOR")
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "hace 3 días", queue[0].TimeAgo)
	assert.Equal(t, "hace 30 minutos", queue[1].TimeAgo)
}

func TestReviewServiceHistoryPDF(t *testing.T) {
	reviews := &mockReviewRepo{
		history: []models.ReviewHistoryItem{
			{
				ReviewRecord: models.ReviewRecord{
					ID: 1, PublicationID: 9, AdvisorMatricula: "A0ADVISOR",
					AssignedStatus: models.ModerationApproved, Comments: "Listo", ReviewedAt: time.Now(),
				},
				AdvisorFirstName: "Sofia",
				AdvisorLastName:  "Rios",
			},
		},
	}
	svc := NewReviewService(reviews, &mockSupervisionChecker{allowed: true}, &mockPublicationLookup{pub: pendingPublication()}, export.NewPDFExporter(), nil, nil)

	report, err := svc.HistoryPDF(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, len(report) > 0)
	assert.Equal(t, "%PDF", string(report[:4]))
}
