package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/models"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

type searchRepository interface {
	Profiles(ctx context.Context, terms []string, searcher string) ([]dto.ProfileHit, error)
	Publications(ctx context.Context, terms []string) ([]models.PublicationSummary, error)
	Events(ctx context.Context, terms []string, viewer string) ([]models.EventSummary, error)
	Suggestions(ctx context.Context, matricula string) ([]dto.SuggestionItem, error)
}

type searchCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SearchService fans the general search out over the three result sets
// concurrently and caches assembled responses briefly.
type SearchService struct {
	repo     searchRepository
	cache    searchCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSearchService constructs a SearchService instance.
func NewSearchService(repo searchRepository, cache searchCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &SearchService{repo: repo, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// General runs the keyword search across profiles, publications and events.
// The keyword splits on whitespace into independent terms and the three
// queries run in parallel; a failure in any of them fails the whole search.
func (s *SearchService) General(ctx context.Context, keyword, searcher string) (*dto.GeneralSearchResponse, error) {
	terms := strings.Fields(keyword)
	if len(terms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "se requiere una palabra de búsqueda")
	}

	cacheKey := fmt.Sprintf("search:general:%s:%s", searcher, strings.ToLower(strings.Join(terms, " ")))
	var cached dto.GeneralSearchResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		s.metrics.RecordCacheLookup(true)
		return &cached, nil
	}
	s.metrics.RecordCacheLookup(false)

	var (
		profiles     []dto.ProfileHit
		publications []models.PublicationSummary
		events       []models.EventSummary
	)
	errs := make(chan error, 3)

	go func() {
		var err error
		profiles, err = s.repo.Profiles(ctx, terms, searcher)
		errs <- err
	}()
	go func() {
		var err error
		publications, err = s.repo.Publications(ctx, terms)
		errs <- err
	}()
	go func() {
		var err error
		events, err = s.repo.Events(ctx, terms, searcher)
		errs <- err
	}()

	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "search query failed")
		}
	}

	now := time.Now().UTC()
	response := &dto.GeneralSearchResponse{
		Profiles:     make([]dto.ProfileHit, 0, len(profiles)),
		Publications: make([]dto.PublicationHit, 0, len(publications)),
		Events:       make([]dto.EventHit, 0, len(events)),
	}
	for _, profile := range profiles {
		profile.RoleLabel = profile.Role.Label()
		response.Profiles = append(response.Profiles, profile)
	}
	for _, pub := range publications {
		pub.TimeAgo = dto.TimeAgo(pub.PublishedAt, now)
		response.Publications = append(response.Publications, dto.PublicationHit{PublicationSummary: pub})
	}
	for _, event := range events {
		response.Events = append(response.Events, dto.EventHit{
			EventSummary: event,
			TimeAgo:      dto.TimeAgo(event.CreatedAt, now),
			Remaining:    event.Capacity - event.Registered,
		})
	}

	if err := s.cache.Set(ctx, cacheKey, response, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache search response", zap.Error(err))
	}
	return response, nil
}

// Suggestions ranks unfollowed profiles by shared interests.
func (s *SearchService) Suggestions(ctx context.Context, matricula string) ([]dto.SuggestionItem, error) {
	items, err := s.repo.Suggestions(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list suggestions")
	}
	return items, nil
}
