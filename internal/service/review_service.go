package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/export"
)

type reviewRepository interface {
	Record(ctx context.Context, review *models.ReviewRecord) error
	PendingQueue(ctx context.Context, advisorMatricula string) ([]models.PendingReviewItem, error)
	History(ctx context.Context, publicationID int) ([]models.ReviewHistoryItem, error)
}

type supervisionChecker interface {
	Supervises(ctx context.Context, advisorMatricula string, publicationID int) (bool, error)
}

type reviewPublicationLookup interface {
	GetByID(ctx context.Context, id int) (*models.Publication, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReviewService implements the moderation flow around publications.
type ReviewService struct {
	reviews      reviewRepository
	advisories   supervisionChecker
	publications reviewPublicationLookup
	pdf          pdfRenderer
	cache        searchInvalidator
	logger       *zap.Logger
}

// NewReviewService constructs a ReviewService instance.
func NewReviewService(reviews reviewRepository, advisories supervisionChecker, publications reviewPublicationLookup, pdf pdfRenderer, cache searchInvalidator, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, advisories: advisories, publications: publications, pdf: pdf, cache: cache, logger: logger}
}

// validVerdicts are the states an advisor can assign.
var validVerdicts = map[models.ModerationStatus]bool{
	models.ModerationApproved:    true,
	models.ModerationCorrections: true,
	models.ModerationRejected:    true,
}

// Review records a verdict on a publication. The advisor must have an
// active pairing with one of the authors. Any publication can be reviewed
// again, an approved work returns to review when a new verdict lands.
func (s *ReviewService) Review(ctx context.Context, advisorMatricula string, publicationID int, req dto.ReviewRequest) (*models.ReviewRecord, error) {
	if !validVerdicts[req.Status] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "estatus de revisión inválido")
	}

	if _, err := s.publications.GetByID(ctx, publicationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publication")
	}

	allowed, err := s.advisories.Supervises(ctx, advisorMatricula, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervision")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "solo el asesor asignado puede revisar esta publicación")
	}

	review := &models.ReviewRecord{
		PublicationID:    publicationID,
		AdvisorMatricula: advisorMatricula,
		AssignedStatus:   req.Status,
		Comments:         req.Comments,
	}
	if err := s.reviews.Record(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review")
	}
	// A verdict moves the work in or out of the public catalog.
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, searchCachePattern); err != nil {
			s.logger.Warn("failed to invalidate search cache", zap.Error(err))
		}
	}

	s.logger.Info("publication reviewed",
		zap.Int("publication", publicationID),
		zap.String("advisor", advisorMatricula),
		zap.String("status", string(req.Status)))
	return review, nil
}

// PendingQueue lists the advisor's reviewable publications oldest first.
func (s *ReviewService) PendingQueue(ctx context.Context, advisorMatricula string) ([]dto.PendingQueueItem, error) {
	items, err := s.reviews.PendingQueue(ctx, advisorMatricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending reviews")
	}

	now := time.Now().UTC()
	queue := make([]dto.PendingQueueItem, 0, len(items))
	for _, item := range items {
		queue = append(queue, dto.PendingQueueItem{
			PendingReviewItem: item,
			TimeAgo:           dto.TimeAgo(item.PublishedAt, now),
		})
	}
	return queue, nil
}

// History lists every verdict recorded for a publication, newest first.
func (s *ReviewService) History(ctx context.Context, publicationID int) ([]models.ReviewHistoryItem, error) {
	items, err := s.reviews.History(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list review history")
	}
	return items, nil
}

// HistoryPDF renders the review history as a downloadable report.
func (s *ReviewService) HistoryPDF(ctx context.Context, publicationID int) ([]byte, error) {
	pub, err := s.publications.GetByID(ctx, publicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publication")
	}
	items, err := s.reviews.History(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list review history")
	}

	data := export.Dataset{
		Headers: []string{"Fecha", "Asesor", "Estatus", "Comentarios"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		data.Rows = append(data.Rows, map[string]string{
			"Fecha":       item.ReviewedAt.Format("2006-01-02 15:04"),
			"Asesor":      fmt.Sprintf("%s %s", item.AdvisorFirstName, item.AdvisorLastName),
			"Estatus":     string(item.AssignedStatus),
			"Comentarios": item.Comments,
		})
	}

	report, err := s.pdf.Render(data, fmt.Sprintf("Historial de revisiones: %s", pub.Title))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history pdf")
	}
	return report, nil
}
