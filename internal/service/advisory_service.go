package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/teshub/teshub-api/internal/models"
	"github.com/teshub/teshub-api/internal/repository"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type advisoryRepository interface {
	Request(ctx context.Context, advisorMatricula, studentMatricula string) (*models.Advisory, error)
	GetByID(ctx context.Context, id int) (*models.Advisory, error)
	SetStatus(ctx context.Context, id int, from, to models.AdvisoryStatus) error
	ListStudents(ctx context.Context, advisorMatricula string, status models.AdvisoryStatus) ([]models.AdvisoryStudent, error)
	CurrentAdvisor(ctx context.Context, studentMatricula string) (*models.CurrentAdvisor, error)
}

type advisoryUserLookup interface {
	GetByMatricula(ctx context.Context, matricula string) (*models.User, error)
}

// AdvisoryService manages advisor-student pairings.
type AdvisoryService struct {
	advisories advisoryRepository
	users      advisoryUserLookup
	logger     *zap.Logger
}

// NewAdvisoryService constructs an AdvisoryService instance.
func NewAdvisoryService(advisories advisoryRepository, users advisoryUserLookup, logger *zap.Logger) *AdvisoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryService{advisories: advisories, users: users, logger: logger}
}

// Request files a pending supervision request against an active advisor.
// A student may have requests out to several advisors at once, but only one
// pending or active pairing per advisor.
func (s *AdvisoryService) Request(ctx context.Context, studentMatricula, advisorMatricula string) (*models.Advisory, error) {
	advisor, err := s.users.GetByMatricula(ctx, advisorMatricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "la cuenta destino no es un asesor activo")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch advisor")
	}
	if advisor.Role != models.RoleAdvisor || advisor.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "la cuenta destino no es un asesor activo")
	}

	advisory, err := s.advisories.Request(ctx, advisorMatricula, studentMatricula)
	if err != nil {
		if errors.Is(err, repository.ErrAdvisoryExists) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "ya tienes una asesoría pendiente o activa con este asesor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advisory")
	}

	s.logger.Info("advisory requested",
		zap.String("student", studentMatricula),
		zap.String("advisor", advisorMatricula))
	return advisory, nil
}

// Resolve accepts or declines a pending request. Only the addressed advisor
// may resolve it; declining closes the request so the student can try
// another advisor.
func (s *AdvisoryService) Resolve(ctx context.Context, advisorMatricula string, advisoryID int, accept bool) error {
	advisory, err := s.advisories.GetByID(ctx, advisoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch advisory")
	}
	if advisory.AdvisorMatricula != advisorMatricula {
		return appErrors.ErrNotFound
	}
	if advisory.Status != models.AdvisoryPending {
		return appErrors.Clone(appErrors.ErrValidation, "la solicitud ya fue resuelta")
	}

	target := models.AdvisoryClosed
	if accept {
		target = models.AdvisoryActive
	}
	if err := s.advisories.SetStatus(ctx, advisoryID, models.AdvisoryPending, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "la solicitud ya fue resuelta")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve advisory")
	}
	return nil
}

// Close ends an active pairing. Either side may close it.
func (s *AdvisoryService) Close(ctx context.Context, matricula string, advisoryID int) error {
	advisory, err := s.advisories.GetByID(ctx, advisoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch advisory")
	}
	if advisory.AdvisorMatricula != matricula && advisory.StudentMatricula != matricula {
		return appErrors.ErrForbidden
	}

	if err := s.advisories.SetStatus(ctx, advisoryID, models.AdvisoryActive, models.AdvisoryClosed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "la asesoría no está activa")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close advisory")
	}
	return nil
}

// PendingRequests lists the advisor's unresolved requests, oldest first.
func (s *AdvisoryService) PendingRequests(ctx context.Context, advisorMatricula string) ([]models.AdvisoryStudent, error) {
	students, err := s.advisories.ListStudents(ctx, advisorMatricula, models.AdvisoryPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return students, nil
}

// Advisees lists the advisor's active students.
func (s *AdvisoryService) Advisees(ctx context.Context, advisorMatricula string) ([]models.AdvisoryStudent, error) {
	students, err := s.advisories.ListStudents(ctx, advisorMatricula, models.AdvisoryActive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list advisees")
	}
	return students, nil
}

// CurrentAdvisor returns the student's pending or active pairing, or nil
// when there is none.
func (s *AdvisoryService) CurrentAdvisor(ctx context.Context, studentMatricula string) (*models.CurrentAdvisor, error) {
	advisor, err := s.advisories.CurrentAdvisor(ctx, studentMatricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch current advisor")
	}
	return advisor, nil
}
