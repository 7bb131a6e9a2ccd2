package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

// SearchHandler exposes the general search and suggestion endpoints.
type SearchHandler struct {
	service *service.SearchService
	metrics *service.MetricsService
}

// NewSearchHandler creates a new handler.
func NewSearchHandler(svc *service.SearchService, metrics *service.MetricsService) *SearchHandler {
	return &SearchHandler{service: svc, metrics: metrics}
}

// General godoc
// @Summary Search profiles, publications and events by keyword
// @Description Runs the three searches concurrently and caches the combined result briefly
// @Tags Search
// @Produce json
// @Param palabra query string true "Keyword"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /buscar [get]
func (h *SearchHandler) General(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()
	result, err := h.service.General(c.Request.Context(), c.Query("palabra"), claims.Matricula)
	h.metrics.ObserveSearch(time.Since(start))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// Suggestions godoc
// @Summary Suggest profiles to follow by shared interests
// @Tags Search
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sugerencias [get]
func (h *SearchHandler) Suggestions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	suggestions, err := h.service.Suggestions(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, suggestions)
}
