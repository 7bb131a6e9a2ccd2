package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

// ReviewHandler exposes the moderation endpoints.
type ReviewHandler struct {
	service *service.ReviewService
}

// NewReviewHandler creates a new handler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// Review godoc
// @Summary Record a verdict on a queued publication
// @Description Only the advisor supervising one of the authors may review. Already-resolved works are rejected.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path int true "Publication id"
// @Param payload body dto.ReviewRequest true "Verdict and comments"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /revisiones/{id} [post]
func (h *ReviewHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos de revisión inválidos"))
		return
	}

	record, err := h.service.Review(c.Request.Context(), claims.Matricula, publicationID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record, "revisión registrada")
}

// PendingQueue godoc
// @Summary List publications awaiting the advisor's review
// @Description Queue is ordered oldest first
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /revisiones/pendientes [get]
func (h *ReviewHandler) PendingQueue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	queue, err := h.service.PendingQueue(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, queue)
}

// History godoc
// @Summary List the review history of a publication
// @Tags Reviews
// @Produce json
// @Param id path int true "Publication id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /revisiones/{id}/historial [get]
func (h *ReviewHandler) History(c *gin.Context) {
	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	history, err := h.service.History(c.Request.Context(), publicationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, history)
}

// HistoryPDF godoc
// @Summary Download the review history as PDF
// @Tags Reviews
// @Produce application/pdf
// @Param id path int true "Publication id"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /revisiones/{id}/historial/pdf [get]
func (h *ReviewHandler) HistoryPDF(c *gin.Context) {
	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	pdf, err := h.service.HistoryPDF(c.Request.Context(), publicationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("historial-%d.pdf", publicationID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
