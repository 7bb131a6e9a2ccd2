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
	"github.com/teshub/teshub-api/pkg/export"
)

type publicationRepository interface {
	Create(ctx context.Context, pub *models.Publication, members []string, files []models.PublicationFile, tags []string) error
	GetByID(ctx context.Context, id int) (*models.Publication, error)
	Update(ctx context.Context, id int, title, description, coverPath *string, tags []string) error
	Delete(ctx context.Context, id int) error
	IsMember(ctx context.Context, publicationID int, matricula string) (bool, error)
	Members(ctx context.Context, publicationID int) ([]models.PublicationMember, error)
	Files(ctx context.Context, publicationID int) ([]models.PublicationFile, error)
	Tags(ctx context.Context, publicationID int) ([]models.Tag, error)
	ListByAuthor(ctx context.Context, matricula string) ([]models.Publication, error)
	ListApproved(ctx context.Context, limit, offset int) ([]models.PublicationSummary, error)
	IncrementViews(ctx context.Context, id int) error
	IncrementDownloads(ctx context.Context, id int) error
	Rate(ctx context.Context, rating *models.Rating) error
	RatingSummary(ctx context.Context, publicationID int, matricula string) (float64, *int, error)
	AddComment(ctx context.Context, comment *models.Comment) error
	Comments(ctx context.Context, publicationID int) ([]models.Comment, error)
	GetComment(ctx context.Context, commentID int) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID int) error
	GetFile(ctx context.Context, publicationID, fileID int) (*models.PublicationFile, error)
	DeleteFile(ctx context.Context, fileID int) error
}

type memberChecker interface {
	ExistingMatriculas(ctx context.Context, matriculas []string) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// searchInvalidator drops cached search responses when the underlying
// catalog changes.
type searchInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

const searchCachePattern = "search:general:*"

// UploadedFile is a file received with a multipart submission.
type UploadedFile struct {
	Name string
	Data []byte
}

// PublicationService implements the publication lifecycle around the
// review state machine.
type PublicationService struct {
	publications publicationRepository
	users        memberChecker
	storage      fileStore
	csv          csvRenderer
	cache        searchInvalidator
	logger       *zap.Logger
}

// NewPublicationService constructs a PublicationService instance.
func NewPublicationService(publications publicationRepository, users memberChecker, storage fileStore, csv csvRenderer, cache searchInvalidator, logger *zap.Logger) *PublicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicationService{publications: publications, users: users, storage: storage, csv: csv, cache: cache, logger: logger}
}

func (s *PublicationService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, searchCachePattern); err != nil {
		s.logger.Warn("failed to invalidate search cache", zap.Error(err))
	}
}

// discardStored removes files written to storage by an operation that did
// not complete, so nothing is left orphaned on disk.
func (s *PublicationService) discardStored(paths []string) {
	for _, path := range paths {
		if err := s.storage.Delete(path); err != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(err))
		}
	}
}

// Create stores the uploads and inserts the publication with the owner as
// first member. Student work enters the review queue pending a verdict;
// staff submissions publish approved right away.
func (s *PublicationService) Create(ctx context.Context, owner string, role models.Role, req dto.CreatePublicationRequest, cover *UploadedFile, attachments []UploadedFile) (*models.Publication, error) {
	members := append([]string{owner}, req.Members...)
	if err := s.requireKnownUsers(ctx, req.Members); err != nil {
		return nil, err
	}

	status := models.ModerationPending
	if role == models.RoleAdmin || role == models.RoleAdvisor {
		status = models.ModerationApproved
	}
	pub := &models.Publication{
		Title:       req.Title,
		Description: req.Description,
		Status:      &status,
		PublishedAt: time.Now().UTC(),
	}
	var stored []string
	if cover != nil {
		path, err := s.storage.Save(fmt.Sprintf("covers/%d-%s", pub.PublishedAt.UnixNano(), cover.Name), cover.Data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store cover")
		}
		pub.CoverPath = &path
		stored = append(stored, path)
	}

	files := make([]models.PublicationFile, 0, len(attachments))
	for _, attachment := range attachments {
		path, err := s.storage.Save(fmt.Sprintf("publications/%d-%s", pub.PublishedAt.UnixNano(), attachment.Name), attachment.Data)
		if err != nil {
			s.discardStored(stored)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
		}
		files = append(files, models.PublicationFile{FileName: attachment.Name, FilePath: path})
		stored = append(stored, path)
	}

	if err := s.publications.Create(ctx, pub, members, files, req.Tags); err != nil {
		s.discardStored(stored)
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "uno de los integrantes ya está agregado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create publication")
	}
	s.invalidateSearch(ctx)

	s.logger.Info("publication created",
		zap.Int("publication", pub.ID),
		zap.String("owner", owner))
	return pub, nil
}

// Detail assembles the publication page and counts the visit.
func (s *PublicationService) Detail(ctx context.Context, publicationID int, viewer string) (*dto.PublicationDetailResponse, error) {
	pub, err := s.publications.GetByID(ctx, publicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publication")
	}

	if err := s.publications.IncrementViews(ctx, publicationID); err != nil {
		s.logger.Warn("failed to count view", zap.Error(err))
	} else {
		pub.Views++
	}

	members, err := s.publications.Members(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch members")
	}
	files, err := s.publications.Files(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch files")
	}
	tags, err := s.publications.Tags(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch tags")
	}
	average, mine, err := s.publications.RatingSummary(ctx, publicationID, viewer)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch ratings")
	}

	return &dto.PublicationDetailResponse{
		Publication: *pub,
		TimeAgo:     dto.TimeAgo(pub.PublishedAt, time.Now().UTC()),
		Members:     members,
		Files:       files,
		Tags:        tags,
		Average:     average,
		MyRating:    mine,
	}, nil
}

// Update edits a publication. Members may edit their own work and
// administrators may edit any. Works sent back for corrections or rejected
// re-enter the review queue on edit.
func (s *PublicationService) Update(ctx context.Context, matricula string, role models.Role, publicationID int, req dto.UpdatePublicationRequest, cover *UploadedFile) error {
	pub, err := s.publications.GetByID(ctx, publicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publication")
	}
	if role != models.RoleAdmin {
		if err := s.requireMember(ctx, publicationID, matricula); err != nil {
			return err
		}
	}

	var coverPath *string
	if cover != nil {
		path, err := s.storage.Save(fmt.Sprintf("covers/%d-%s", time.Now().UnixNano(), cover.Name), cover.Data)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store cover")
		}
		coverPath = &path
	}

	if err := s.publications.Update(ctx, publicationID, req.Title, req.Description, coverPath, req.Tags); err != nil {
		if coverPath != nil {
			s.discardStored([]string{*coverPath})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publication")
	}
	s.invalidateSearch(ctx)

	if coverPath != nil && pub.CoverPath != nil {
		if err := s.storage.Delete(*pub.CoverPath); err != nil {
			s.logger.Warn("failed to delete replaced cover", zap.Error(err))
		}
	}
	return nil
}

// Delete removes a publication along with its stored files. Members may
// delete their own work and administrators may delete any.
func (s *PublicationService) Delete(ctx context.Context, matricula string, role models.Role, publicationID int) error {
	if role != models.RoleAdmin {
		if err := s.requireMember(ctx, publicationID, matricula); err != nil {
			return err
		}
	}

	pub, err := s.publications.GetByID(ctx, publicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publication")
	}
	files, err := s.publications.Files(ctx, publicationID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch files")
	}

	if err := s.publications.Delete(ctx, publicationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete publication")
	}
	s.invalidateSearch(ctx)

	if pub.CoverPath != nil {
		if err := s.storage.Delete(*pub.CoverPath); err != nil {
			s.logger.Warn("failed to delete cover", zap.Error(err))
		}
	}
	for _, file := range files {
		if err := s.storage.Delete(file.FilePath); err != nil {
			s.logger.Warn("failed to delete attachment", zap.Error(err))
		}
	}
	return nil
}

// Mine lists the caller's publications in every review state.
func (s *PublicationService) Mine(ctx context.Context, matricula string) ([]models.Publication, error) {
	pubs, err := s.publications.ListByAuthor(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list publications")
	}
	return pubs, nil
}

// ByUser lists another user's publications. The owner sees every state,
// other viewers only the approved work.
func (s *PublicationService) ByUser(ctx context.Context, matricula, viewer string) ([]models.Publication, error) {
	pubs, err := s.publications.ListByAuthor(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list publications")
	}
	if viewer == matricula {
		return pubs, nil
	}
	visible := make([]models.Publication, 0, len(pubs))
	for _, pub := range pubs {
		if pub.Status != nil && *pub.Status == models.ModerationApproved {
			visible = append(visible, pub)
		}
	}
	return visible, nil
}

// Catalog lists approved publications newest first as display cards.
func (s *PublicationService) Catalog(ctx context.Context, limit, offset int) ([]models.PublicationSummary, error) {
	pubs, err := s.publications.ListApproved(ctx, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}
	now := time.Now().UTC()
	for i := range pubs {
		pubs[i].TimeAgo = dto.TimeAgo(pubs[i].PublishedAt, now)
	}
	return pubs, nil
}

// Download counts the download and returns the stored file to serve.
func (s *PublicationService) Download(ctx context.Context, publicationID, fileID int) (*models.PublicationFile, error) {
	files, err := s.publications.Files(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch files")
	}
	for i := range files {
		if files[i].ID == fileID {
			if err := s.publications.IncrementDownloads(ctx, publicationID); err != nil {
				s.logger.Warn("failed to count download", zap.Error(err))
			}
			return &files[i], nil
		}
	}
	return nil, appErrors.ErrNotFound
}

// Rate records a 1..5 score, once per user.
func (s *PublicationService) Rate(ctx context.Context, matricula string, publicationID, score int) error {
	if score < 1 || score > 5 {
		return appErrors.Clone(appErrors.ErrValidation, "la calificación debe estar entre 1 y 5")
	}
	rating := &models.Rating{PublicationID: publicationID, Matricula: matricula, Score: score}
	if err := s.publications.Rate(ctx, rating); err != nil {
		if repository.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicate, "ya calificaste esta publicación")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record rating")
	}
	return nil
}

// Comment adds a reader comment.
func (s *PublicationService) Comment(ctx context.Context, matricula string, publicationID int, body string) (*models.Comment, error) {
	comment := &models.Comment{PublicationID: publicationID, Matricula: matricula, Body: body}
	if err := s.publications.AddComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}
	return comment, nil
}

// DeleteComment removes a comment. The comment author may remove their own,
// administrators may remove any.
func (s *PublicationService) DeleteComment(ctx context.Context, matricula string, role models.Role, commentID int) error {
	comment, err := s.publications.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch comment")
	}
	if comment.Matricula != matricula && role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "solo el autor del comentario puede eliminarlo")
	}
	if err := s.publications.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}

// RemoveFile detaches a stored attachment from a publication the caller
// authored and deletes it from disk.
func (s *PublicationService) RemoveFile(ctx context.Context, matricula string, role models.Role, publicationID, fileID int) error {
	if role != models.RoleAdmin {
		if err := s.requireMember(ctx, publicationID, matricula); err != nil {
			return err
		}
	}
	file, err := s.publications.GetFile(ctx, publicationID, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch file")
	}
	if err := s.publications.DeleteFile(ctx, fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	if err := s.storage.Delete(file.FilePath); err != nil {
		s.logger.Warn("failed to delete attachment from storage", zap.Error(err))
	}
	return nil
}

// Comments lists a publication's comments newest first.
func (s *PublicationService) Comments(ctx context.Context, publicationID int) ([]models.Comment, error) {
	comments, err := s.publications.Comments(ctx, publicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// CatalogCSV exports the approved catalog as CSV.
func (s *PublicationService) CatalogCSV(ctx context.Context) ([]byte, error) {
	pubs, err := s.publications.ListApproved(ctx, 100, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Titulo", "Fecha", "Vistas", "Descargas"},
		Rows:    make([]map[string]string, 0, len(pubs)),
	}
	for _, pub := range pubs {
		data.Rows = append(data.Rows, map[string]string{
			"ID":        fmt.Sprintf("%d", pub.ID),
			"Titulo":    pub.Title,
			"Fecha":     pub.PublishedAt.Format("2006-01-02"),
			"Vistas":    fmt.Sprintf("%d", pub.Views),
			"Descargas": fmt.Sprintf("%d", pub.Downloads),
		})
	}

	report, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render catalog csv")
	}
	return report, nil
}

// requireKnownUsers rejects a member list naming accounts that do not
// exist, reporting exactly which matriculas are unknown.
func (s *PublicationService) requireKnownUsers(ctx context.Context, matriculas []string) error {
	if len(matriculas) == 0 {
		return nil
	}
	found, err := s.users.ExistingMatriculas(ctx, matriculas)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check members")
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
			fmt.Sprintf("integrantes no registrados: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (s *PublicationService) requireMember(ctx context.Context, publicationID int, matricula string) error {
	member, err := s.publications.IsMember(ctx, publicationID, matricula)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return appErrors.Clone(appErrors.ErrForbidden, "solo los integrantes pueden modificar la publicación")
	}
	return nil
}
